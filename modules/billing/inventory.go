package billing

import (
	"mime/multipart"

	"github.com/dmitrymomot/hostelkit/handler"
	"github.com/dmitrymomot/hostelkit/svc/inventory"
)

func (m *Module) listProperties(ctx handler.Context, _ struct{}) handler.Response {
	props, err := m.inv.Properties(ctx, viewer(ctx).UserID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(props)
}

// PropertyRequest creates a property (branch).
type PropertyRequest struct {
	Name string `json:"name"`
}

func (m *Module) createProperty(ctx handler.Context, req PropertyRequest) handler.Response {
	p, err := m.gate.CreateProperty(ctx, viewer(ctx).UserID, req.Name)
	if err != nil {
		return m.fail(ctx, err)
	}
	return created(p)
}

// RoomRequest creates one room with its beds.
type RoomRequest struct {
	PropertyID string `path:"propertyID" json:"-"`
	inventory.RoomInput
}

func (m *Module) createRoom(ctx handler.Context, req RoomRequest) handler.Response {
	room, err := m.gate.CreateRoom(ctx, viewer(ctx).UserID, req.PropertyID, req.RoomInput)
	if err != nil {
		return m.fail(ctx, err)
	}
	return created(room)
}

// BulkRoomsRequest carries rooms as a JSON array or as a CSV file in the
// multipart field "file".
type BulkRoomsRequest struct {
	PropertyID string                `path:"propertyID" json:"-"`
	Rooms      []inventory.RoomInput `json:"rooms"`
	File       *multipart.FileHeader `file:"file" json:"-"`
}

func (m *Module) bulkCreateRooms(ctx handler.Context, req BulkRoomsRequest) handler.Response {
	rows := req.Rooms
	if req.File != nil {
		f, err := req.File.Open()
		if err != nil {
			return m.fail(ctx, ErrInvalidCSV.Wrap(err))
		}
		defer f.Close()
		if rows, err = ReadRoomsCSV(f); err != nil {
			return m.fail(ctx, err)
		}
	}

	res, err := m.gate.BulkCreateRooms(ctx, viewer(ctx).UserID, req.PropertyID, rows)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(res, handler.WithJSONMeta(map[string]any{
		"created": len(res.Created),
		"skipped": len(res.Skipped),
		"failed":  len(res.Failed),
	}))
}
