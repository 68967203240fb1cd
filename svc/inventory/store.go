package inventory

import "context"

// Store persists properties, rooms and beds.
type Store interface {
	// Locked runs fn in one transaction holding the owner's exclusive lock.
	// Counts read through the Writer stay valid until fn returns.
	Locked(ctx context.Context, ownerID string, fn func(ctx context.Context, w Writer) error) error

	Usage(ctx context.Context, ownerID string) (Usage, error)
	Property(ctx context.Context, id string) (*Property, error)
	Properties(ctx context.Context, ownerID string) ([]*Property, error)
	Rooms(ctx context.Context, propertyID string) ([]*Room, error)
}

// Writer mutates inventory inside Store.Locked.
type Writer interface {
	Usage(ctx context.Context, ownerID string) (Usage, error)
	Property(ctx context.Context, id string) (*Property, error)
	// InsertProperty fails with ErrDuplicateProperty when the owner already
	// has a property with the same name.
	InsertProperty(ctx context.Context, p *Property) error
	// InsertRoom stores the room and its beds. A room whose floor and number
	// already exist in the property yields Duplicate and writes nothing. A
	// failed row is rolled back on its own, leaving earlier rows intact.
	InsertRoom(ctx context.Context, r *Room, beds []*Bed) (Outcome, error)
}
