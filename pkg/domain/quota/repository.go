package quota

import (
	"context"
	"errors"
	"time"
)

var ErrStateNotFound = errors.New("quota state not found")

type Repository interface {
	// Get returns ErrStateNotFound when no state exists, or when the stored
	// value cannot be decoded.
	Get(ctx context.Context, key string) (*State, error)
	Save(ctx context.Context, key string, state State) error
	Delete(ctx context.Context, key string) error
	// DeleteExpired removes state whose window ended before the given instant
	// and returns how many entries were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound)
}
