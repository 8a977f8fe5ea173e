package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	sessionKey     contextKey = "session"
	compositionKey contextKey = "composition"
)

// SessionFromRequest resolves the session carried by the request's verified
// access token. Any missing, invalid or non-access token is anonymous.
func SessionFromRequest(r *http.Request) session.Session {
	if sess, ok := r.Context().Value(sessionKey).(session.Session); ok {
		return sess
	}

	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return session.Anonymous()
	}
	if t, _ := claims[jwt.ClaimType].(string); t != jwt.TokenTypeAccess {
		return session.Anonymous()
	}

	u, err := jwt.UserFromClaims(claims)
	if err != nil {
		return session.Anonymous()
	}
	return session.Authenticated(&u)
}

// WithSession stores sess on the request context
func WithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// AuthRequired rejects requests without a valid access token
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := jwtauth.FromContext(r.Context()); err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		sess := SessionFromRequest(r)
		if !sess.IsAuthenticated {
			response.HandleError(w, session.ErrNotAuthenticated)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
