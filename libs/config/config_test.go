package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8080"); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	t.Setenv("PORT", "")
	p, err := Port("PORT", "8080")
	if err != nil || p != "8080" {
		t.Fatalf("expected fallback 8080, got %q (%v)", p, err)
	}
}

func TestDurationAndInt(t *testing.T) {
	t.Setenv("TTL", "90s")
	d, err := Duration("TTL", time.Minute)
	if err != nil || d != 90*time.Second {
		t.Fatalf("expected 90s, got %s (%v)", d, err)
	}
	t.Setenv("TTL", "soon")
	if _, err := Duration("TTL", time.Minute); err == nil {
		t.Fatal("expected error for invalid duration")
	}

	t.Setenv("LIMIT", "")
	n, err := Int("LIMIT", 60)
	if err != nil || n != 60 {
		t.Fatalf("expected fallback 60, got %d (%v)", n, err)
	}
	t.Setenv("LIMIT", "x")
	if _, err := Int("LIMIT", 60); err == nil {
		t.Fatal("expected error for invalid int")
	}
}

func TestBoolListLocation(t *testing.T) {
	t.Setenv("FLAG", "off")
	if Bool("FLAG", true) {
		t.Fatal("expected off to be false")
	}
	t.Setenv("FLAG", "maybe")
	if !Bool("FLAG", true) {
		t.Fatal("expected fallback for unknown value")
	}

	t.Setenv("ORIGINS", " https://a.example , ,https://b.example")
	got := List("ORIGINS")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list: %#v", got)
	}

	t.Setenv("TZ_NAME", "UTC")
	loc, err := Location("TZ_NAME", "America/Mexico_City")
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
	t.Setenv("TZ_NAME", "Mars/Olympus")
	if _, err := Location("TZ_NAME", "UTC"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
