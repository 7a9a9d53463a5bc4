package agent

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LeventeLantos/sms-queue/internal/model"
	"github.com/LeventeLantos/sms-queue/internal/tracing"
)

// Queue is the part of the sms-queue HTTP API the agent depends on.
type Queue interface {
	ListPending(ctx context.Context) ([]model.Message, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Batcher delivers a batch and reports per-message outcomes itself.
type Batcher interface {
	ProcessBatch(ctx context.Context, msgs []model.Message) (sent int, failed int)
}

// Runner performs one poll-and-deliver cycle per Tick. Claiming is advisory:
// a second agent polling the same queue may pick up the same records.
type Runner struct {
	queue     Queue
	sender    Batcher
	batchSize int
	log       zerolog.Logger
}

func NewRunner(queue Queue, sender Batcher, batchSize int, log zerolog.Logger) *Runner {
	return &Runner{
		queue:     queue,
		sender:    sender,
		batchSize: batchSize,
		log:       log.With().Str("component", "agent").Logger(),
	}
}

// Tick never returns an error; failures are logged and the next tick tries
// again.
func (r *Runner) Tick(ctx context.Context) {
	var err error
	ctx, span := tracing.StartSpan(ctx, "agent.Tick")
	defer func() { tracing.End(span, err) }()

	start := time.Now()

	var pending []model.Message
	pending, err = r.queue.ListPending(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("fetch pending failed")
		return
	}

	batch := oldestFirst(pending, r.batchSize)
	span.SetAttributes(
		attribute.Int("sms.pending", len(pending)),
		attribute.Int("sms.batch", len(batch)),
	)
	if len(batch) == 0 {
		return
	}

	sent, failed := r.sender.ProcessBatch(ctx, batch)
	r.log.Info().
		Int("pending", len(pending)).
		Int("sent", sent).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("batch processed")
}

// oldestFirst picks up to n records in creation order. The pending listing
// is newest-first.
func oldestFirst(pending []model.Message, n int) []model.Message {
	out := slices.Clone(pending)
	slices.Reverse(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
