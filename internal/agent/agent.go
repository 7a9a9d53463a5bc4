package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/LeventeLantos/sms-queue/internal/client"
	"github.com/LeventeLantos/sms-queue/internal/config"
	"github.com/LeventeLantos/sms-queue/internal/scheduler"
	"github.com/LeventeLantos/sms-queue/internal/service"
)

// NewSender returns a sender whose outcomes are reported back to queue.
func NewSender(queue Queue, gateway service.SendClient, contentMax int, log zerolog.Logger) *service.Sender {
	return service.NewSender(gateway, contentMax, log).WithHooks(
		func(ctx context.Context, id, remoteMessageID string) error {
			log.Debug().Str("sms_id", id).Str("remote_id", remoteMessageID).Msg("gateway accepted")
			return queue.MarkSent(ctx, id)
		},
		queue.MarkFailed,
	)
}

// Run polls the queue until ctx is done.
func Run(ctx context.Context, cfg *config.AgentConfig, log zerolog.Logger) error {
	queue := client.NewAPIClient(cfg.APIURL, cfg.APIKey)
	sender := NewSender(queue, client.NewWebhookClient(cfg.WebhookURL), cfg.ContentMax, log)
	runner := NewRunner(queue, sender, cfg.BatchSize, log)

	sched, err := scheduler.New(cfg.Interval(), runner.Tick, log)
	if err != nil {
		return fmt.Errorf("agent scheduler: %w", err)
	}

	log.Info().
		Str("api_url", cfg.APIURL).
		Str("webhook_url", cfg.WebhookURL).
		Int("batch_size", cfg.BatchSize).
		Msg("agent starting")

	sched.Start(ctx)
	<-ctx.Done()
	sched.Stop()
	return nil
}
