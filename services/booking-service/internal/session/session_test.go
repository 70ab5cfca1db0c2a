package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBinder_RequiresPatient(t *testing.T) {
	b := NewBinder(testLogger())
	_, err := b.Bind("  ", time.Now(), time.UTC)
	if !errors.Is(err, ErrSession) {
		t.Fatalf("expected ErrSession, got %v", err)
	}
	if err := b.Validate(Session{}); !errors.Is(err, ErrSession) {
		t.Fatalf("expected ErrSession for unbound session, got %v", err)
	}
}

func TestBinder_IdentityChangeInvalidatesBinding(t *testing.T) {
	b := NewBinder(testLogger())
	issued := time.Date(2026, 5, 28, 9, 0, 0, 0, time.UTC)

	sess, err := b.Bind("pat-1", issued, time.UTC)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := b.Validate(sess); err != nil {
		t.Fatalf("fresh session rejected: %v", err)
	}

	b.Invalidate(IdentityChange{PatientID: "pat-1", At: issued.Add(time.Minute)})

	if err := b.Validate(sess); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked for stale session, got %v", err)
	}
	if _, err := b.Bind("pat-1", issued, time.UTC); !errors.Is(err, ErrRevoked) {
		t.Fatalf("token issued before the change must be refused, got %v", err)
	}

	again, err := b.Bind("pat-1", issued.Add(2*time.Minute), time.UTC)
	if err != nil {
		t.Fatalf("re-resolution failed: %v", err)
	}
	if err := b.Validate(again); err != nil {
		t.Fatalf("re-resolved session rejected: %v", err)
	}

	other, _ := b.Bind("pat-2", issued, time.UTC)
	if err := b.Validate(other); err != nil {
		t.Fatalf("unrelated patient affected: %v", err)
	}
}

func TestBinder_RunConsumesChannel(t *testing.T) {
	b := NewBinder(testLogger())
	sess, _ := b.Bind("pat-1", time.Now().Add(-time.Hour), time.UTC)

	changes := make(chan IdentityChange)
	done := make(chan struct{})
	go func() {
		b.Run(context.Background(), changes)
		close(done)
	}()
	changes <- IdentityChange{PatientID: "pat-1"}
	close(changes)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after channel close")
	}
	if err := b.Validate(sess); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestSessionLocDefaultsToUTC(t *testing.T) {
	if (Session{}).Loc() != time.UTC {
		t.Fatal("expected UTC")
	}
	loc := time.FixedZone("X", 3600)
	if (Session{Location: loc}).Loc() != loc {
		t.Fatal("session zone not used")
	}
}
