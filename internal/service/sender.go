package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/LeventeLantos/sms-queue/internal/client"
	"github.com/LeventeLantos/sms-queue/internal/model"
)

// SendClient hands one message to a delivery gateway.
type SendClient interface {
	Send(ctx context.Context, phoneNumber, message string) (remoteMessageID string, err error)
}

// Sender is the delivery half of a polling agent: it pushes each message to
// the gateway and reports the outcome through the hooks.
type Sender struct {
	client     SendClient
	contentMax int
	log        zerolog.Logger

	onSent   func(ctx context.Context, id, remoteMessageID string) error
	onFailed func(ctx context.Context, id, reason string) error
}

func NewSender(client SendClient, contentMax int, log zerolog.Logger) *Sender {
	return &Sender{
		client:     client,
		contentMax: contentMax,
		log:        log,
	}
}

func (s *Sender) WithHooks(
	onSent func(ctx context.Context, id, remoteMessageID string) error,
	onFailed func(ctx context.Context, id, reason string) error,
) *Sender {
	s.onSent = onSent
	s.onFailed = onFailed
	return s
}

// ProcessBatch stops early when ctx is cancelled; messages not reached stay
// PENDING on the server.
func (s *Sender) ProcessBatch(ctx context.Context, msgs []model.Message) (sent int, failed int) {
	for _, m := range msgs {
		if ctx.Err() != nil {
			return sent, failed
		}

		if utf8.RuneCountInString(m.Message) > s.contentMax {
			failed++
			s.fail(ctx, m.ID, fmt.Sprintf("content exceeds %d chars", s.contentMax))
			continue
		}

		remoteID, err := s.client.Send(ctx, m.To, m.Message)
		if err != nil {
			failed++
			var gerr *client.GatewayError
			if errors.As(err, &gerr) {
				s.log.Debug().Str("sms_id", m.ID).Int("status", gerr.StatusCode).Str("body", gerr.Body).Msg("gateway rejected message")
			}
			s.fail(ctx, m.ID, err.Error())
			continue
		}

		sent++
		if s.onSent != nil {
			if err := s.onSent(ctx, m.ID, remoteID); err != nil {
				s.log.Error().Err(err).Str("sms_id", m.ID).Msg("report sent failed")
			}
		}
	}
	return sent, failed
}

func (s *Sender) fail(ctx context.Context, id, reason string) {
	s.log.Warn().Str("sms_id", id).Str("reason", reason).Msg("delivery failed")
	if s.onFailed == nil {
		return
	}
	if err := s.onFailed(ctx, id, reason); err != nil {
		s.log.Error().Err(err).Str("sms_id", id).Msg("report failure failed")
	}
}
