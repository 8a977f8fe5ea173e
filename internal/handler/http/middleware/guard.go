package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/route"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"
)

// CompositionFromContext returns what the guard composed around the screen
func CompositionFromContext(ctx context.Context) route.Composition {
	c, _ := ctx.Value(compositionKey).(route.Composition)
	return c
}

// Guard evaluates screen's capability on every request. Denials become a
// 302 to the decision's target; non-guest denials carry the requested
// location as the "from" query parameter.
func Guard(screen route.Screen, paths route.Paths) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromRequest(r)
			requested := r.URL.RequestURI()

			d := screen.Evaluate(sess, requested, paths)
			if !d.Allowed() {
				target := RedirectLocation(d)
				slog.Debug("Screen redirected",
					"screen", screen.Name,
					"capability", screen.Capability,
					"role", sess.Role(),
					"target", target,
				)
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			ctx := WithSession(r.Context(), sess)
			ctx = context.WithValue(ctx, compositionKey, d.Composition)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectLocation builds the Location header for a redirect decision.
func RedirectLocation(d route.Decision) string {
	if d.From == "" || !validator.IsLocalPath(d.From) {
		return d.Target
	}
	u, err := url.Parse(d.Target)
	if err != nil {
		return d.Target
	}
	q := u.Query()
	q.Set("from", d.From)
	u.RawQuery = q.Encode()
	return u.String()
}

// RequireCapability gates API routes: a denied request gets 401 when logged
// out and 403 otherwise, never a redirect.
func RequireCapability(c route.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromRequest(r)
			if route.Evaluate(c, sess, r.URL.Path, route.Paths{}).Allowed() {
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
				return
			}

			if !sess.IsAuthenticated {
				response.Unauthorized(w, "Authentication required")
				return
			}
			response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s', but user role is '%s'", c, sess.Role()))
		})
	}
}
