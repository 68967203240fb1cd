package app

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/hostelkit/svc/notify"
)

// ErrUnknownUser is returned for user ids missing from the users collection.
var ErrUnknownUser = errors.New("app: unknown user")

// UserDirectory looks up email addresses in the identity service's users
// collection, which shares the billing database.
func UserDirectory(db *mongodriver.Database, collection string) notify.Directory {
	users := db.Collection(collection)
	return notify.DirectoryFunc(func(ctx context.Context, userID string) (string, error) {
		var doc struct {
			Email string `bson:"email"`
		}
		err := users.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"email": 1})).Decode(&doc)
		switch {
		case errors.Is(err, mongodriver.ErrNoDocuments):
			return "", fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		case err != nil:
			return "", err
		case doc.Email == "":
			return "", fmt.Errorf("%w: %s has no email", ErrUnknownUser, userID)
		}
		return doc.Email, nil
	})
}
