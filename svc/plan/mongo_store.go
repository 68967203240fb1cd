package plan

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongox "github.com/dmitrymomot/hostelkit/pkg/mongo"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// CollectionName is the MongoDB collection holding plans.
const CollectionName = "plans"

// MongoStore keeps plans in MongoDB. Calls made with a session context take
// part in that session's transaction.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a MongoStore on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique name index and the kind/status lookup index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "status", Value: 1}}},
	})
	return billing.Storage(err)
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Plan, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetByName(ctx context.Context, name string) (*Plan, error) {
	return s.findOne(ctx, bson.M{"name": bson.M{"$regex": "^" + regexp.QuoteMeta(name) + "$", "$options": "i"}})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*Plan, error) {
	var p Plan
	if err := s.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		if mongox.IsNotFound(err) {
			return nil, ErrPlanNotFound
		}
		return nil, billing.Storage(err)
	}
	return &p, nil
}

func (s *MongoStore) List(ctx context.Context) ([]*Plan, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, billing.Storage(err)
	}
	var plans []*Plan
	if err := cur.All(ctx, &plans); err != nil {
		return nil, billing.Storage(err)
	}
	return plans, nil
}

func (s *MongoStore) Insert(ctx context.Context, p *Plan) error {
	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		if mongox.IsDuplicateKeyError(err) {
			return ErrDuplicateName
		}
		return billing.Storage(err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, p *Plan) error {
	prev := p.Version
	p.Version++
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": p.ID, "version": prev}, p)
	if err != nil {
		p.Version = prev
		if mongox.IsDuplicateKeyError(err) {
			return ErrDuplicateName
		}
		return billing.Storage(err)
	}
	if res.MatchedCount == 0 {
		p.Version = prev
		if _, err := s.Get(ctx, p.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return billing.Storage(err)
	}
	if res.DeletedCount == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// AddSubscribers uses an aggregation pipeline update so the counter is
// clamped at zero in a single round trip.
func (s *MongoStore) AddSubscribers(ctx context.Context, id string, delta int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"subscriber_count": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$subscriber_count", delta}}}},
		}}},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return billing.Storage(err)
	}
	if res.MatchedCount == 0 {
		return ErrPlanNotFound
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
