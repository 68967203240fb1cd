// Package mongo manages the MongoDB client used by the plan and subscription
// stores.
//
// Connect retries until the server answers a ping. Transactor runs a callback
// inside a multi-document transaction and joins an outer transaction when the
// context already carries a session, so services can compose transactional
// operations freely:
//
//	tx := mongo.NewTransactor(client)
//	err := tx.WithTx(ctx, func(ctx context.Context) error {
//		if err := subs.Save(ctx, old); err != nil {
//			return err
//		}
//		return subs.Save(ctx, next)
//	})
//
// Transactions require a replica set or sharded cluster.
package mongo
