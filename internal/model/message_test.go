package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"PENDING", "SENT", "FAILED"} {
		s, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, Status(raw), s)
	}

	for _, raw := range []string{"", "pending", "queued", "PROCESSING"} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestMessage_Transitions(t *testing.T) {
	at := time.Date(2026, 2, 2, 18, 0, 0, 0, time.UTC)
	m := Message{ID: "x", To: "+33600000000", Message: "hi", Status: Pending}

	m.MarkFailed("", at)
	assert.Equal(t, Failed, m.Status)
	require.NotNil(t, m.FailReason)
	assert.Equal(t, DefaultFailReason, *m.FailReason)
	require.NotNil(t, m.LastAttemptAt)
	assert.True(t, m.LastAttemptAt.Equal(at))
	assert.Equal(t, 1, m.AttemptCount)

	m.MarkFailed("timeout", at.Add(time.Minute))
	assert.Equal(t, 2, m.AttemptCount)
	assert.Equal(t, "timeout", *m.FailReason)

	m.Requeue()
	assert.Equal(t, Pending, m.Status)
	assert.Nil(t, m.FailReason)
	assert.Equal(t, 2, m.AttemptCount)
	assert.NotNil(t, m.LastAttemptAt)

	m.MarkSent(at.Add(2 * time.Minute))
	assert.Equal(t, Sent, m.Status)
	require.NotNil(t, m.SentAt)
	assert.Nil(t, m.FailReason)
	assert.Equal(t, 2, m.AttemptCount)

	m.Requeue()
	assert.Nil(t, m.SentAt)
}

func TestMessage_JSONFieldNames(t *testing.T) {
	m := Message{
		ID:        "abc",
		To:        "+1",
		Message:   "hello",
		Status:    Pending,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(m)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	for _, k := range []string{"id", "to", "message", "status", "attempt_count", "last_attempt_at", "sent_at", "fail_reason", "created_at"} {
		assert.Contains(t, got, k)
	}
	assert.Nil(t, got["sent_at"])
	assert.Nil(t, got["fail_reason"])
	assert.Equal(t, "PENDING", got["status"])
}
