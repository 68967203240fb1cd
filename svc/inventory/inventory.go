package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hostelkit/pkg/sanitizer"
	"github.com/dmitrymomot/hostelkit/pkg/validator"
)

// Status of a room or bed. Only active rows count towards usage.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Property is one branch of an owner's business.
type Property struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Room is a numbered room on a floor of a property.
type Room struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	OwnerID    string    `json:"owner_id"`
	Floor      int       `json:"floor"`
	RoomNumber string    `json:"room_number"`
	BedCount   int       `json:"bed_count"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Bed is a rentable bed in a room.
type Bed struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	PropertyID string    `json:"property_id"`
	OwnerID    string    `json:"owner_id"`
	Label      string    `json:"label"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomInput is a room to create. Beds are labelled A, B, C... unless
// BedLabels are given.
type RoomInput struct {
	Floor      int      `json:"floor"`
	RoomNumber string   `json:"room_number"`
	BedCount   int      `json:"bed_count"`
	BedLabels  []string `json:"bed_labels,omitempty"`
}

// MaxBedsPerRoom caps a single room.
const MaxBedsPerRoom = 50

// Validate checks a single row.
func (in RoomInput) Validate() error {
	labels := sanitizer.CleanStringSlice(in.BedLabels)
	if err := validator.Apply(
		validator.Required("room_number", in.Number()),
		validator.MaxLen("room_number", in.Number(), 20),
		validator.Range("floor", in.Floor, -5, 200),
		validator.Range("bed_count", in.BedCount, 1, MaxBedsPerRoom),
		validator.When(len(labels) > 0, validator.Check("bed_labels", len(labels) == in.BedCount, "mismatch", "must match bed_count")),
	); err != nil {
		return ErrInvalidRoom.Wrap(err)
	}
	return nil
}

var cleanRoomNumber = sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.SingleLine)

// Number is the room number with whitespace and control characters removed.
func (in RoomInput) Number() string {
	return cleanRoomNumber(in.RoomNumber)
}

// Labels returns the bed labels for the room.
func (in RoomInput) Labels() []string {
	if labels := sanitizer.CleanStringSlice(in.BedLabels); len(labels) == in.BedCount {
		return labels
	}
	out := make([]string, in.BedCount)
	for i := range out {
		out[i] = bedLabel(i)
	}
	return out
}

// NewRoom builds an active room with its beds from in.
func NewRoom(ownerID, propertyID string, in RoomInput, now time.Time) (*Room, []*Bed) {
	r := &Room{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		OwnerID:    ownerID,
		Floor:      in.Floor,
		RoomNumber: in.Number(),
		BedCount:   in.BedCount,
		Status:     StatusActive,
		CreatedAt:  now,
	}
	labels := in.Labels()
	beds := make([]*Bed, len(labels))
	for i, label := range labels {
		beds[i] = &Bed{
			ID:         uuid.NewString(),
			RoomID:     r.ID,
			PropertyID: propertyID,
			OwnerID:    ownerID,
			Label:      label,
			Status:     StatusActive,
			CreatedAt:  now,
		}
	}
	return r, beds
}

func bedLabel(i int) string {
	label := ""
	for i++; i > 0; i = (i - 1) / 26 {
		label = string(rune('A'+(i-1)%26)) + label
	}
	return label
}

// Usage is the live count of an owner's active resources.
type Usage struct {
	Properties int `json:"properties"`
	Rooms      int `json:"rooms"`
	Beds       int `json:"beds"`
}

// Outcome of inserting one row.
type Outcome int

const (
	Created Outcome = iota
	// Duplicate means a room with the same floor and number already exists.
	Duplicate
)
