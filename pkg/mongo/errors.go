package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
	ErrTransactionFailed      = errors.New("mongo transaction failed")
)

// IsDuplicateKeyError reports whether err is a unique index violation.
func IsDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsNotFound reports whether err means the query matched no document.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
