package db

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestOptionsApplyDefaults(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://booking@localhost:5432/booking")
	if err != nil {
		t.Fatal(err)
	}
	Options{MaxConns: 4, MinConns: 8}.apply(cfg)

	if cfg.MaxConns != 4 || cfg.MinConns != 4 {
		t.Fatalf("expected min clamped to max, got max=%d min=%d", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxConnLifetime != 30*time.Minute || cfg.MaxConnIdleTime != 5*time.Minute {
		t.Fatalf("expected default lifetimes, got %v/%v", cfg.MaxConnLifetime, cfg.MaxConnIdleTime)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "20")
	t.Setenv("DB_CONN_IDLE_TIME", "90s")
	opts, err := OptionsFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if opts.MaxConns != 20 || opts.MaxConnIdleTime != 90*time.Second || opts.MinConns != 0 {
		t.Fatalf("unexpected options %+v", opts)
	}

	t.Setenv("DB_MAX_CONNS", "many")
	if _, err := OptionsFromEnv(); err == nil {
		t.Fatal("expected error for non-numeric DB_MAX_CONNS")
	}
}
