package store

import (
	"context"

	"github.com/supp-dex/instance-api/internal/store/schema"
)

// Store defines the interface for durable flag operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// GetFlag retrieves the secret for an id. found is false when the id has
	// no record.
	GetFlag(ctx context.Context, id string) (flag string, found bool, err error)

	// PutFlag upserts one flag, resetting its creation time
	PutFlag(ctx context.Context, id string, flag string) error

	// PutFlags upserts a batch of flags in a single transaction: either all
	// entries commit or none do
	PutFlags(ctx context.Context, flags []schema.Flag) error

	// DeleteFlag removes a flag by id, reporting whether a record existed
	DeleteFlag(ctx context.Context, id string) (bool, error)

	// CountFlags returns the number of stored flags
	CountFlags(ctx context.Context) (int64, error)

	// ListFlags returns all flags ordered by creation time ascending
	ListFlags(ctx context.Context) ([]schema.Flag, error)
}
