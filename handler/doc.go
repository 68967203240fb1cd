// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a bound request struct and returns a Response:
//
//	func createRoom(ctx handler.Context, req CreateRoomRequest) handler.Response {
//		room, err := gate.CreateRoom(ctx, viewer(ctx), req.PropertyID, req.Input())
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(room, handler.WithJSONStatus(http.StatusCreated))
//	}
//
//	r.Post("/properties/{propertyID}/rooms", handler.Wrap(createRoom,
//		handler.WithBinders[handler.Context, CreateRoomRequest](binder.Path(chi.URLParam), binder.JSON()),
//		handler.WithErrorHandler[handler.Context, CreateRoomRequest](errHandler),
//	))
//
// JSON responses share one envelope: {"data": ..., "meta": ..., "error":
// {"code", "message", "details"}}. JSONError maps domain errors to status
// codes: anything exposing HTTPStatus and ErrorCode (billing.Error) keeps its
// status and code, Details() is copied into the error details, validation
// failures list their fields, transient storage failures become 503 and
// everything else is an opaque 500.
package handler
