package inventory

import (
	"net/http"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

var (
	ErrPropertyNotFound  = billing.NewError(billing.CodeNotFound, http.StatusNotFound, "property not found")
	ErrRoomNotFound      = billing.NewError(billing.CodeNotFound, http.StatusNotFound, "room not found")
	ErrPropertyForbidden = billing.NewError(billing.CodeForbidden, http.StatusForbidden, "property belongs to another owner")
	ErrDuplicateProperty = billing.NewError(billing.CodeConflict, http.StatusConflict, "a property with this name already exists")
	ErrDuplicateRoom     = billing.NewError(billing.CodeConflict, http.StatusConflict, "a room with this number already exists on the floor")
	ErrInvalidRoom       = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "invalid room")
	ErrInvalidProperty   = billing.NewError(billing.CodeValidation, http.StatusBadRequest, "invalid property")
)
