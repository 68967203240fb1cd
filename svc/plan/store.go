package plan

import "context"

// Store persists plans. Implementations return ErrPlanNotFound, ErrDuplicateName
// and ErrVersionConflict for the matching conditions and wrap backend failures
// with billing.Storage.
type Store interface {
	Get(ctx context.Context, id string) (*Plan, error)
	GetByName(ctx context.Context, name string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	Insert(ctx context.Context, p *Plan) error
	// Update writes p if the stored version equals p.Version and bumps it.
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, id string) error
	// AddSubscribers changes the subscriber counter by delta, never below zero.
	AddSubscribers(ctx context.Context, id string, delta int) error
}
