package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeventeLantos/sms-queue/internal/model"
)

const (
	DefaultLimit = 200
	MinLimit     = 1
	MaxLimit     = 2000
)

var (
	ErrNotFound      = errors.New("sms not found")
	ErrInvalidRecord = errors.New("invalid sms record")
	ErrInvalidLimit  = fmt.Errorf("limit must be between %d and %d", MinLimit, MaxLimit)
)

// Filter selects records for Query. Zero-valued fields do not filter; a zero
// Limit means DefaultLimit.
type Filter struct {
	Status model.Status
	To     string
	Limit  int
}

func (f Filter) normalize() (Filter, error) {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < MinLimit || f.Limit > MaxLimit {
		return f, ErrInvalidLimit
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: status %q", ErrInvalidRecord, f.Status)
	}
	return f, nil
}

// MutateFunc edits a record in place while its row is locked. Returning an
// error aborts the update without writing anything.
type MutateFunc func(m *model.Message) error

type MessageRepository interface {
	Insert(ctx context.Context, m model.Message) (model.Message, error)
	FindByID(ctx context.Context, id string) (model.Message, error)
	Query(ctx context.Context, f Filter) ([]model.Message, error)
	Update(ctx context.Context, id string, mutate MutateFunc) (model.Message, error)
}
