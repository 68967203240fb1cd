package billing

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/hostelkit/handler"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// ViewerFunc resolves the authenticated caller. ok is false for anonymous
// requests.
type ViewerFunc func(r *http.Request) (v plan.Viewer, ok bool)

var viewerKey = handler.NewContextKey("billing.viewer")

// WithViewer stores v in ctx.
func WithViewer(ctx context.Context, v plan.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// ViewerFromContext returns the viewer stored by the module's middleware.
func ViewerFromContext(ctx context.Context) (plan.Viewer, bool) {
	return handler.ContextValueOK[plan.Viewer](ctx, viewerKey)
}

func (m *Module) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := m.viewer(r)
		if !ok || v.UserID == "" {
			_ = handler.JSONError(ErrUnauthorized).Render(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), v)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, _ := ViewerFromContext(r.Context()); !v.IsAdmin() {
			_ = handler.JSONError(ErrForbidden).Render(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func viewer(ctx handler.Context) plan.Viewer {
	v, _ := ViewerFromContext(ctx)
	return v
}

// streamUser adapts the viewer for the event stream.
func (m *Module) streamUser(r *http.Request) (string, bool) {
	v, ok := ViewerFromContext(r.Context())
	return v.UserID, ok && v.UserID != ""
}
