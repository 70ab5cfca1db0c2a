package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/md-rashed-zaman/pharmavisit/libs/config"
)

type Pool struct {
	*pgxpool.Pool
}

// Options tunes the pool. Zero fields keep the defaults.
type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

var defaultOptions = Options{
	MaxConns:        10,
	MinConns:        1,
	MaxConnLifetime: 30 * time.Minute,
	MaxConnIdleTime: 5 * time.Minute,
}

// OptionsFromEnv reads DB_MAX_CONNS, DB_MIN_CONNS, DB_CONN_LIFETIME and
// DB_CONN_IDLE_TIME.
func OptionsFromEnv() (Options, error) {
	maxConns, err := config.Int("DB_MAX_CONNS", 0)
	if err != nil {
		return Options{}, err
	}
	minConns, err := config.Int("DB_MIN_CONNS", 0)
	if err != nil {
		return Options{}, err
	}
	lifetime, err := config.Duration("DB_CONN_LIFETIME", 0)
	if err != nil {
		return Options{}, err
	}
	idle, err := config.Duration("DB_CONN_IDLE_TIME", 0)
	if err != nil {
		return Options{}, err
	}
	return Options{
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		MaxConnLifetime: lifetime,
		MaxConnIdleTime: idle,
	}, nil
}

func (o Options) apply(cfg *pgxpool.Config) {
	pick := func(v, def time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return def
	}
	cfg.MaxConns = defaultOptions.MaxConns
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	cfg.MinConns = defaultOptions.MinConns
	if o.MinConns > 0 {
		cfg.MinConns = o.MinConns
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	cfg.MaxConnLifetime = pick(o.MaxConnLifetime, defaultOptions.MaxConnLifetime)
	cfg.MaxConnIdleTime = pick(o.MaxConnIdleTime, defaultOptions.MaxConnIdleTime)
}

// Open connects and pings so a bad DATABASE_URL fails at startup.
func Open(ctx context.Context, databaseURL string, opts Options) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	opts.apply(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

func (p *Pool) Close() {
	if p == nil || p.Pool == nil {
		return
	}
	p.Pool.Close()
}

// InTx runs fn inside a transaction and commits when fn returns nil.
func (p *Pool) InTx(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, p.Pool, opts, fn)
}

func ReadyCheck(pool *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil || pool.Pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
}
