package identity

import (
	"context"
	"net/http"
	"strings"
)

type sessionKey struct{}

// WithSession returns a copy of ctx carrying session
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session attached by the middleware
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// ContextIdentity resolves the current user from the request context
type ContextIdentity struct{}

// CurrentIdentity returns the user of the session attached to ctx
func (ContextIdentity) CurrentIdentity(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return s.UserID, true
}

// Middleware attaches the session named by the request's bearer token.
// EventSource and websocket clients cannot set headers, so a token query
// parameter is accepted as well. Requests without a valid token pass through
// anonymously.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if session, ok := r.Resolve(tokenFromRequest(req)); ok {
			req = req.WithContext(WithSession(req.Context(), session))
		}
		next.ServeHTTP(w, req)
	})
}

// RequireSession rejects requests that carry no session
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, ok := SessionFromContext(req.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"not authenticated"}` + "\n"))
			return
		}
		next.ServeHTTP(w, req)
	})
}

func tokenFromRequest(req *http.Request) string {
	if auth := req.Header.Get("Authorization"); auth != "" {
		const prefix = "bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
		return ""
	}
	return req.URL.Query().Get("token")
}
