package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Transactor runs callbacks inside MongoDB transactions.
type Transactor struct {
	client *mongo.Client
}

// NewTransactor creates a Transactor bound to client.
func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithTx runs fn inside a transaction. If ctx already carries a session the
// callback joins that transaction instead of starting a new one.
// The driver may call fn more than once on transient commit errors.
func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return errors.Join(ErrTransactionFailed, err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}
