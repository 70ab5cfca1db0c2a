package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// IdentityChange is pushed by the identity provider when a patient's identity
// is revoked, re-linked or signed out. Sessions issued at or before At stop
// being accepted.
type IdentityChange struct {
	PatientID string
	At        time.Time
}

type binding struct {
	generation uint64
	revokedAt  time.Time
}

// Binder caches patient bindings and invalidates them on identity changes.
type Binder struct {
	mu       sync.RWMutex
	bindings map[string]binding
	logger   *slog.Logger
}

func NewBinder(logger *slog.Logger) *Binder {
	return &Binder{bindings: map[string]binding{}, logger: logger}
}

// Bind resolves a session for an authenticated identity.
func (b *Binder) Bind(patientID string, issuedAt time.Time, loc *time.Location) (Session, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return Session{}, ErrNoPatient
	}

	b.mu.RLock()
	cur := b.bindings[patientID]
	b.mu.RUnlock()

	if !cur.revokedAt.IsZero() && !issuedAt.After(cur.revokedAt) {
		return Session{}, ErrRevoked
	}
	return Session{
		PatientID:  patientID,
		Location:   loc,
		IssuedAt:   issuedAt,
		Generation: cur.generation,
	}, nil
}

// Validate rejects sessions bound before the most recent identity change.
func (b *Binder) Validate(s Session) error {
	if !s.Bound() {
		return ErrNoPatient
	}
	b.mu.RLock()
	cur := b.bindings[s.PatientID]
	b.mu.RUnlock()
	if cur.generation != s.Generation {
		return ErrRevoked
	}
	return nil
}

// Invalidate discards the cached binding for a patient.
func (b *Binder) Invalidate(change IdentityChange) {
	id := strings.TrimSpace(change.PatientID)
	if id == "" {
		return
	}
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	b.mu.Lock()
	cur := b.bindings[id]
	cur.generation++
	if at.After(cur.revokedAt) {
		cur.revokedAt = at
	}
	b.bindings[id] = cur
	b.mu.Unlock()

	b.logger.Info("patient binding invalidated", "patient_id", id, "generation", cur.generation)
}

// Run applies identity changes until ctx is done or changes is closed.
func (b *Binder) Run(ctx context.Context, changes <-chan IdentityChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			b.Invalidate(change)
		}
	}
}
