package controlplane

import (
	"context"
	"net/http"
	"strings"

	"github.com/jsonmona/twilight/internal/session"
)

type sessionCtxKey struct{}

// requireAuth enforces the "Authorization: Bearer <hex64>" convention
// (spec.md §4.7), looks up the session, and stashes it in the request
// context for the wrapped handler. A missing or unknown token is a 403,
// matching the control-plane's error-code table.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, http.StatusForbidden, "missing bearer token")
			return
		}

		sid, err := session.ParseID(tok)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed token")
			return
		}

		sess, err := s.registry.Access(sid)
		if err != nil {
			writeError(w, http.StatusForbidden, "unauthenticated")
			return
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

func sessionFromContext(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionCtxKey{}).(*session.Session)
	return sess
}
