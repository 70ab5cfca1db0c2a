package main

import (
	"net/http"

	"github.com/md-rashed-zaman/pharmavisit/libs/auth"
	"github.com/md-rashed-zaman/pharmavisit/libs/httpx"
)

// requireAuth verifies the bearer token and exposes the patient to the rest of
// the chain, both as claims on the context and as the patient header used for
// rate limiting and access logs.
func requireAuth(next http.Handler, verifier *auth.Verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := verifier.Verify(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Del(httpx.PatientIDHeader)
		if claims.PatientID != "" {
			r.Header.Set(httpx.PatientIDHeader, claims.PatientID)
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), claims)))
	})
}
