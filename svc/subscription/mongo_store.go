package subscription

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongox "github.com/dmitrymomot/hostelkit/pkg/mongo"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// Collection names used by MongoStore.
const (
	SubscriptionsCollection = "subscriptions"
	PaymentsCollection      = "subscription_payments"
)

// MongoStore keeps subscriptions in MongoDB. A partial unique index on
// user_id over live records backs the one-live-record-per-user rule, and a
// unique index on (order_id, payment_id) backs payment idempotency.
type MongoStore struct {
	subs     *mongo.Collection
	payments *mongo.Collection
}

// NewMongoStore creates a MongoStore on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		subs:     db.Collection(SubscriptionsCollection),
		payments: db.Collection(PaymentsCollection),
	}
}

// EnsureIndexes creates the indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.subs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("one_live_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"live": true}),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "trial_end_date", Value: 1}}},
	})
	if err != nil {
		return billing.Storage(err)
	}

	_, err = s.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}, {Key: "payment_id", Value: 1}},
		Options: options.Index().SetName("payment_idempotency").SetUnique(true),
	})
	return billing.Storage(err)
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Subscription, error) {
	return s.findOne(ctx, bson.M{"_id": id}, ErrSubscriptionNotFound)
}

func (s *MongoStore) Live(ctx context.Context, userID string) (*Subscription, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "live": true}, ErrNoLiveSubscription)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, notFound error) (*Subscription, error) {
	var sub Subscription
	if err := s.subs.FindOne(ctx, filter).Decode(&sub); err != nil {
		if mongox.IsNotFound(err) {
			return nil, notFound
		}
		return nil, billing.Storage(err)
	}
	return &sub, nil
}

func (s *MongoStore) History(ctx context.Context, userID string) ([]*Subscription, error) {
	return s.find(ctx, bson.M{"user_id": userID}, bson.D{{Key: "created_at", Value: -1}})
}

func (s *MongoStore) HasTrial(ctx context.Context, userID string) (bool, error) {
	n, err := s.subs.CountDocuments(ctx, bson.M{"user_id": userID, "billing_cycle": CycleTrial}, options.Count().SetLimit(1))
	if err != nil {
		return false, billing.Storage(err)
	}
	return n > 0, nil
}

func (s *MongoStore) Insert(ctx context.Context, sub *Subscription) error {
	if _, err := s.subs.InsertOne(ctx, sub); err != nil {
		if mongox.IsDuplicateKeyError(err) {
			return ErrLiveExists
		}
		return billing.Storage(err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, sub *Subscription) error {
	prev := sub.Version
	sub.Version++
	res, err := s.subs.ReplaceOne(ctx, bson.M{"_id": sub.ID, "version": prev}, sub)
	if err != nil {
		sub.Version = prev
		if mongox.IsDuplicateKeyError(err) {
			return ErrLiveExists
		}
		return billing.Storage(err)
	}
	if res.MatchedCount == 0 {
		sub.Version = prev
		if _, err := s.Get(ctx, sub.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *MongoStore) DueForRenewal(ctx context.Context, t time.Time) ([]*Subscription, error) {
	return s.find(ctx, bson.M{
		"live":       true,
		"status":     StatusActive,
		"auto_renew": true,
		"end_date":   bson.M{"$lte": t},
	}, bson.D{{Key: "end_date", Value: 1}})
}

func (s *MongoStore) Expired(ctx context.Context, t time.Time) ([]*Subscription, error) {
	return s.find(ctx, bson.M{
		"status":   StatusActive,
		"end_date": bson.M{"$lt": t},
	}, bson.D{{Key: "end_date", Value: 1}})
}

func (s *MongoStore) TrialsEndingBefore(ctx context.Context, t time.Time) ([]*Subscription, error) {
	return s.find(ctx, bson.M{
		"status":         StatusTrial,
		"trial_end_date": bson.M{"$lte": t},
	}, bson.D{{Key: "trial_end_date", Value: 1}})
}

func (s *MongoStore) ClaimPayment(ctx context.Context, key PaymentKey, subscriptionID string) error {
	_, err := s.payments.InsertOne(ctx, bson.M{
		"order_id":        key.OrderID,
		"payment_id":      key.PaymentID,
		"subscription_id": subscriptionID,
		"applied_at":      time.Now().UTC(),
	})
	if err != nil {
		if mongox.IsDuplicateKeyError(err) {
			return ErrDuplicatePayment
		}
		return billing.Storage(err)
	}
	return nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, sort bson.D) ([]*Subscription, error) {
	cur, err := s.subs.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, billing.Storage(err)
	}
	var subs []*Subscription
	if err := cur.All(ctx, &subs); err != nil {
		return nil, billing.Storage(err)
	}
	return subs, nil
}

var _ Store = (*MongoStore)(nil)
