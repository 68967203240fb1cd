package payment

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hostelkit/pkg/file"
)

// Archive keeps the raw bytes of every delivery for audit and replay.
type Archive struct {
	storage file.Storage
	prefix  string
}

// NewArchive stores deliveries under prefix in storage.
func NewArchive(storage file.Storage, prefix string) *Archive {
	if storage == nil {
		panic("payment: file.Storage is required")
	}
	return &Archive{storage: storage, prefix: prefix}
}

// Key returns where a delivery received at t is stored. Rejected deliveries
// go under their own folder.
func (a *Archive) Key(gateway string, verified bool, t time.Time) string {
	folder := "accepted"
	if !verified {
		folder = "rejected"
	}
	return path.Join(a.prefix, gateway, folder, t.UTC().Format("2006/01/02"),
		fmt.Sprintf("%s-%s.json", t.UTC().Format("150405"), uuid.NewString()))
}

// Store writes raw and returns its key.
func (a *Archive) Store(ctx context.Context, gateway string, verified bool, t time.Time, raw []byte) (string, error) {
	key := a.Key(gateway, verified, t)
	if err := a.storage.Put(ctx, key, raw, "application/json"); err != nil {
		return "", fmt.Errorf("archive webhook: %w", err)
	}
	return key, nil
}
