package cache

import (
	"context"
	"errors"

	"github.com/LeventeLantos/sms-queue/internal/model"
)

// ErrMiss means no snapshot is cached; callers read the store instead.
var ErrMiss = errors.New("cache miss")

// PendingCache holds a short-lived snapshot of the PENDING list served to
// polling agents. Snapshots are keyed by generation: a reader takes the
// generation before it reads the store and stores under it, so a snapshot
// taken before an invalidation can never become visible after it.
type PendingCache interface {
	Generation(ctx context.Context) (int64, error)
	GetPending(ctx context.Context) ([]model.Message, error)
	StorePending(ctx context.Context, gen int64, msgs []model.Message) error
	InvalidatePending(ctx context.Context) error
}
