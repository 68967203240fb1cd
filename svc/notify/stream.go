package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

// UserFunc extracts the authenticated user from a request.
type UserFunc func(r *http.Request) (userID string, ok bool)

// StreamHandler streams the caller's events as datastar signal patches under
// the "billing" signal. Clients that cannot hold a stream poll the
// subscription endpoint instead.
func StreamHandler(hub *Hub, user UserFunc, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := user(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		sub, err := hub.Register(r.Context(), userID)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		sse := datastar.NewSSE(w, r)
		log.DebugContext(r.Context(), "event stream opened", logger.UserID(userID))

		for {
			select {
			case <-r.Context().Done():
				return
			case e, ok := <-sub.C():
				if !ok {
					return
				}
				data, err := json.Marshal(map[string]any{"billing": map[string]any{"event": e}})
				if err != nil {
					continue
				}
				if err := sse.PatchSignals(data); err != nil {
					log.DebugContext(r.Context(), "event stream closed", logger.UserID(userID), logger.Error(err))
					return
				}
			}
		}
	})
}
