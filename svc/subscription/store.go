package subscription

import (
	"context"
	"time"
)

// Store persists subscription records and applied payment keys. Writes made
// with a transaction context join that transaction.
type Store interface {
	Get(ctx context.Context, id string) (*Subscription, error)
	// Live returns the user's trial or active record, or ErrNoLiveSubscription.
	Live(ctx context.Context, userID string) (*Subscription, error)
	// History lists every record of the user, newest first.
	History(ctx context.Context, userID string) ([]*Subscription, error)
	// HasTrial reports whether the user ever held a trial record.
	HasTrial(ctx context.Context, userID string) (bool, error)

	// Insert stores a new record. A second live record for the same user
	// fails with ErrLiveExists.
	Insert(ctx context.Context, s *Subscription) error
	// Update writes s if the stored version equals s.Version and bumps it.
	Update(ctx context.Context, s *Subscription) error

	// DueForRenewal lists live, auto-renewing active records ending at or before t.
	DueForRenewal(ctx context.Context, t time.Time) ([]*Subscription, error)
	// Expired lists active records that ended before t.
	Expired(ctx context.Context, t time.Time) ([]*Subscription, error)
	// TrialsEndingBefore lists trial records whose trial ends at or before t.
	TrialsEndingBefore(ctx context.Context, t time.Time) ([]*Subscription, error)

	// ClaimPayment records key as applied to subscriptionID. A key that was
	// already claimed fails with ErrDuplicatePayment.
	ClaimPayment(ctx context.Context, key PaymentKey, subscriptionID string) error
}
