package session

import (
	"errors"
	"time"
)

// ErrSession marks every failure that denies access to the scheduling flow.
var ErrSession = errors.New("session error")

var (
	ErrNoPatient = sessionError("no patient bound to identity")
	ErrRevoked   = sessionError("identity changed; session must be re-resolved")
)

type sessionErr struct{ msg string }

func sessionError(msg string) error { return &sessionErr{msg: msg} }

func (e *sessionErr) Error() string        { return e.msg }
func (e *sessionErr) Is(target error) bool { return target == ErrSession }

// Session is the per-request context passed by value into every booking
// operation. The zero value is unbound.
type Session struct {
	PatientID  string
	Location   *time.Location
	IssuedAt   time.Time
	Generation uint64
}

func (s Session) Bound() bool { return s.PatientID != "" }

// Loc returns the observer's zone, UTC when unset.
func (s Session) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
