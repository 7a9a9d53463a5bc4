package model

import (
	"fmt"
	"time"
)

type Status string

const (
	Pending Status = "PENDING"
	Sent    Status = "SENT"
	Failed  Status = "FAILED"
)

// DefaultFailReason is recorded when a failure is reported without a reason.
const DefaultFailReason = "send_error"

func (s Status) Valid() bool {
	switch s {
	case Pending, Sent, Failed:
		return true
	}
	return false
}

// ParseStatus accepts exactly one of the three lifecycle values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

type Message struct {
	ID            string     `json:"id"`
	To            string     `json:"to"`
	Message       string     `json:"message"`
	Status        Status     `json:"status"`
	AttemptCount  int        `json:"attempt_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	SentAt        *time.Time `json:"sent_at"`
	FailReason    *string    `json:"fail_reason"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MarkSent records a successful delivery. attempt_count is left alone.
func (m *Message) MarkSent(at time.Time) {
	m.Status = Sent
	m.SentAt = &at
	m.FailReason = nil
}

// MarkFailed records a failed delivery attempt. There is no cap on attempts.
func (m *Message) MarkFailed(reason string, at time.Time) {
	if reason == "" {
		reason = DefaultFailReason
	}
	m.Status = Failed
	m.FailReason = &reason
	m.LastAttemptAt = &at
	m.AttemptCount++
	m.SentAt = nil
}

// Requeue puts the message back to PENDING from any state. Counters and
// last_attempt_at survive; sent_at and fail_reason do not.
func (m *Message) Requeue() {
	m.Status = Pending
	m.FailReason = nil
	m.SentAt = nil
}
