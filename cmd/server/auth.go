package main

import (
	"net/http"

	"github.com/Simplici0/cotizador/internal/auth"
)

// requirePrincipal rejects requests without a valid token and stores the
// resolved principal in the request context.
func (s *server) requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.auth.Resolve(r)
		if err != nil {
			s.log.Debug("request not authenticated", "path", r.URL.Path, "error", err)
			writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

func principalID(r *http.Request) int64 {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return 0
	}
	return p.ID
}
