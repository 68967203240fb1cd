// Package binder fills request structs from HTTP requests.
//
// Each binder reads one source and only the fields tagged for it:
//
//   - JSON(): the request body, strict (unknown fields are rejected)
//   - Form(): urlencoded or multipart form values (`form:"name"`) and
//     uploaded files (`file:"name"`)
//   - Query(): URL query parameters (`query:"name"`)
//   - Path(extractor): router path parameters (`path:"name"`)
//
// Binders are applied in order by handler.Wrap. A body binder returns
// ErrBinderNotApplicable when the request carries another content type, so an
// endpoint can accept both JSON and multipart bodies.
//
//	type BulkRoomsRequest struct {
//		PropertyID string                `path:"propertyID" json:"-"`
//		Rooms      []RoomRow             `json:"rooms"`
//		File       *multipart.FileHeader `file:"file" json:"-"`
//	}
//
// Binding failures wrap the package errors so callers can map them to 400
// or 415 responses.
package binder
