package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LeventeLantos/sms-queue/internal/cache"
	"github.com/LeventeLantos/sms-queue/internal/model"
	"github.com/LeventeLantos/sms-queue/internal/repo"
	"github.com/LeventeLantos/sms-queue/internal/tracing"
)

// Lifecycle applies the SMS state machine on top of the message store:
//
//	PENDING --mark-sent-->   SENT
//	PENDING --mark-failed--> FAILED
//	FAILED  --retry-->       PENDING
//
// Transitions do not check the source state. Each one is a single locked
// read-modify-write in the store.
type Lifecycle struct {
	repo     repo.MessageRepository
	pending  cache.PendingCache
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Lifecycle)

func WithPendingCache(c cache.PendingCache) Option {
	return func(l *Lifecycle) { l.pending = c }
}

func WithLogger(log zerolog.Logger) Option {
	return func(l *Lifecycle) { l.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

func NewLifecycle(r repo.MessageRepository, opts ...Option) *Lifecycle {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	l := &Lifecycle{
		repo:     r,
		validate: v,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type createInput struct {
	To      string `json:"to" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type ListParams struct {
	Status string
	To     string
	Limit  int
}

func (l *Lifecycle) Create(ctx context.Context, to, message string) (m model.Message, err error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Create")
	defer func() { tracing.End(span, err) }()

	to = strings.TrimSpace(to)
	in := createInput{To: to, Message: strings.TrimSpace(message)}
	if err := l.validate.StructCtx(ctx, in); err != nil {
		return model.Message{}, invalidInput(err)
	}

	m, err = l.repo.Insert(ctx, model.Message{To: to, Message: message, CreatedAt: l.now()})
	if err != nil {
		return model.Message{}, mapRepoErr(err)
	}

	span.SetAttributes(attribute.String("sms.id", m.ID))
	l.log.Info().Str("sms_id", m.ID).Str("to", m.To).Msg("sms queued")
	l.invalidatePending(ctx)
	return m, nil
}

func (l *Lifecycle) List(ctx context.Context, p ListParams) (out []model.Message, err error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.List",
		attribute.String("sms.status", p.Status),
		attribute.Int("sms.limit", p.Limit),
	)
	defer func() { tracing.End(span, err) }()

	f := repo.Filter{To: p.To, Limit: p.Limit}
	if p.Status != "" {
		s, err := model.ParseStatus(p.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		f.Status = s
	}
	if f.Limit == 0 {
		f.Limit = repo.DefaultLimit
	}
	if f.Limit < repo.MinLimit || f.Limit > repo.MaxLimit {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, repo.ErrInvalidLimit)
	}

	out, err = l.repo.Query(ctx, f)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return out, nil
}

// ListPending is the polling entry point for sending agents. It reserves
// nothing: two agents polling at once may both receive the same record.
func (l *Lifecycle) ListPending(ctx context.Context) (out []model.Message, err error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.ListPending")
	defer func() { tracing.End(span, err) }()

	cacheable := false
	var gen int64
	if l.pending != nil {
		msgs, err := l.pending.GetPending(ctx)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return msgs, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			l.log.Warn().Err(err).Msg("pending cache read failed")
		}

		// The generation must be read before the store so a transition
		// committed in between retires this snapshot.
		if gen, err = l.pending.Generation(ctx); err != nil {
			l.log.Warn().Err(err).Msg("pending cache generation read failed")
		} else {
			cacheable = true
		}
	}

	out, err = l.List(ctx, ListParams{Status: string(model.Pending), Limit: repo.DefaultLimit})
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := l.pending.StorePending(ctx, gen, out); err != nil {
			l.log.Warn().Err(err).Msg("pending cache write failed")
		}
	}
	return out, nil
}

func (l *Lifecycle) Get(ctx context.Context, id string) (m model.Message, err error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Get", attribute.String("sms.id", id))
	defer func() { tracing.End(span, err) }()

	m, err = l.repo.FindByID(ctx, id)
	if err != nil {
		return model.Message{}, mapRepoErr(err)
	}
	return m, nil
}

func (l *Lifecycle) MarkSent(ctx context.Context, id string) (model.Message, error) {
	return l.transition(ctx, "MarkSent", id, func(m *model.Message) {
		m.MarkSent(l.now())
	})
}

// MarkFailed records a failed attempt; an empty reason is stored as
// model.DefaultFailReason.
func (l *Lifecycle) MarkFailed(ctx context.Context, id, reason string) (model.Message, error) {
	return l.transition(ctx, "MarkFailed", id, func(m *model.Message) {
		m.MarkFailed(reason, l.now())
	})
}

func (l *Lifecycle) Retry(ctx context.Context, id string) (model.Message, error) {
	return l.transition(ctx, "Retry", id, func(m *model.Message) {
		m.Requeue()
	})
}

func (l *Lifecycle) transition(ctx context.Context, op, id string, apply func(m *model.Message)) (m model.Message, err error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle."+op, attribute.String("sms.id", id))
	defer func() { tracing.End(span, err) }()

	var from model.Status
	m, err = l.repo.Update(ctx, id, func(cur *model.Message) error {
		from = cur.Status
		apply(cur)
		return nil
	})
	if err != nil {
		return model.Message{}, mapRepoErr(err)
	}

	l.log.Info().
		Str("op", op).
		Str("sms_id", id).
		Str("from", string(from)).
		Str("status", string(m.Status)).
		Int("attempt_count", m.AttemptCount).
		Msg("sms transitioned")

	l.invalidatePending(ctx)
	return m, nil
}

func (l *Lifecycle) invalidatePending(ctx context.Context) {
	if l.pending == nil {
		return
	}
	if err := l.pending.InvalidatePending(ctx); err != nil {
		l.log.Warn().Err(err).Msg("pending cache invalidation failed")
	}
}

func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" is "+fe.Tag())
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, ", "))
}
