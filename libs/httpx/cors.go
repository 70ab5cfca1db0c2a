package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TimezoneHeader carries the client's IANA zone when it is not sent as a query parameter.
const TimezoneHeader = "X-Timezone"

// CORSPolicy lists what browser clients may do cross-origin. "*" in
// AllowedOrigins matches any origin.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// BookingCORSPolicy is the policy used by browser clients of the booking API.
func BookingCORSPolicy(origins []string) CORSPolicy {
	return CORSPolicy{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader, TimezoneHeader},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
}

type corsRules struct {
	anyOrigin   bool
	origins     map[string]struct{}
	credentials bool
	static      http.Header
}

func compileCORS(p CORSPolicy) *corsRules {
	rules := &corsRules{origins: map[string]struct{}{}, credentials: p.AllowCredentials, static: http.Header{}}
	for _, o := range p.AllowedOrigins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch o {
		case "":
		case "*":
			rules.anyOrigin = true
		default:
			rules.origins[o] = struct{}{}
		}
	}
	if v := joinNonBlank(p.AllowedMethods); v != "" {
		rules.static.Set("Access-Control-Allow-Methods", v)
	}
	if v := joinNonBlank(p.AllowedHeaders); v != "" {
		rules.static.Set("Access-Control-Allow-Headers", v)
	}
	if secs := int(p.MaxAge / time.Second); secs > 0 {
		rules.static.Set("Access-Control-Max-Age", strconv.Itoa(secs))
	}
	if p.AllowCredentials {
		rules.static.Set("Access-Control-Allow-Credentials", "true")
	}
	return rules
}

func (c *corsRules) empty() bool { return !c.anyOrigin && len(c.origins) == 0 }

// allowOrigin returns the value for Access-Control-Allow-Origin. A wildcard
// is echoed back as the concrete origin when credentials are allowed.
func (c *corsRules) allowOrigin(origin string) (string, bool) {
	if _, ok := c.origins[strings.ToLower(origin)]; ok {
		return origin, true
	}
	if !c.anyOrigin {
		return "", false
	}
	if c.credentials {
		return origin, true
	}
	return "*", true
}

func (c *corsRules) apply(h http.Header, allow string) {
	h.Set("Access-Control-Allow-Origin", allow)
	for k := range c.static {
		h.Set(k, c.static.Get(k))
	}
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// WithCORS answers preflights for allowed origins and decorates their
// responses. A policy without origins is a no-op.
func WithCORS(policy CORSPolicy) Middleware {
	rules := compileCORS(policy)
	return func(next http.Handler) http.Handler {
		if rules.empty() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allow, ok := rules.allowOrigin(origin)
			if origin == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}
			rules.apply(w.Header(), allow)
			if isPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func joinNonBlank(values []string) string {
	kept := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}
