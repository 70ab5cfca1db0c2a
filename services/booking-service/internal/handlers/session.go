package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/libs/auth"
	"github.com/md-rashed-zaman/pharmavisit/libs/httpx"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
)

// Binder turns a verified identity into a session.
type Binder interface {
	Bind(patientID string, issuedAt time.Time, loc *time.Location) (session.Session, error)
}

// SessionResolver builds the per-request session from the claims placed on the
// context by the auth middleware.
type SessionResolver struct {
	binder     Binder
	defaultLoc *time.Location
}

func NewSessionResolver(binder Binder, defaultLoc *time.Location) *SessionResolver {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &SessionResolver{binder: binder, defaultLoc: defaultLoc}
}

func (s *SessionResolver) Resolve(r *http.Request) (session.Session, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return session.Session{}, session.ErrNoPatient
	}
	var issuedAt time.Time
	if claims.Iat > 0 {
		issuedAt = time.Unix(claims.Iat, 0).UTC()
	}
	return s.binder.Bind(strings.TrimSpace(claims.PatientID), issuedAt, s.location(r))
}

// location prefers the tz query parameter, then the X-Timezone header. Unknown
// zone names fall back to the default.
func (s *SessionResolver) location(r *http.Request) *time.Location {
	for _, name := range []string{r.URL.Query().Get("tz"), r.Header.Get(httpx.TimezoneHeader)} {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return s.defaultLoc
}
