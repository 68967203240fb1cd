package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/hostelkit/handler"
	"github.com/dmitrymomot/hostelkit/pkg/binder"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

var (
	pathBinder handler.Bind = binder.Path(chi.URLParam)
	jsonBinder handler.Bind = binder.JSON()
	formBinder handler.Bind = binder.Form()
)

func wrap[R any](m *Module, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

// fail renders err. Server-side failures are logged with the request id;
// the client only sees the generic message.
func (m *Module) fail(ctx handler.Context, err error) handler.Response {
	if status, _ := handler.ErrorToDetail(err); status >= http.StatusInternalServerError {
		r := ctx.Request()
		m.log.ErrorContext(ctx, "billing request failed",
			logger.Error(err),
			logger.UserID(viewer(ctx).UserID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	return handler.JSONError(err)
}

func created(v any) handler.Response {
	return handler.JSON(v, handler.WithJSONStatus(http.StatusCreated))
}
