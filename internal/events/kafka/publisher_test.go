package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/models/events"
)

func TestMessageEncodesEvent(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")
	t.Cleanup(func() { _ = p.Close() })

	ev := events.TransferCompleted{
		TransferID:  "t1",
		FromAccount: "asha",
		ToAccount:   "bilal",
		Amount:      decimal.RequireFromString("12.50"),
		Category:    "TRANSFER",
		OccurredAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	msg, err := p.message(events.TopicTransferCompleted, "t1", ev)
	require.NoError(t, err)
	require.Equal(t, events.TopicTransferCompleted, msg.Topic)
	require.Equal(t, "t1", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, "t1", decoded["transfer_id"])
	require.Equal(t, "12.5", decoded["amount"])
	require.NotContains(t, decoded, "sink")
}

func TestMessagePinnedTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "payments.audit")
	t.Cleanup(func() { _ = p.Close() })

	msg, err := p.message(events.TopicTransferCompleted, "t2", events.TransferCompleted{TransferID: "t2"})
	require.NoError(t, err)
	require.Equal(t, "payments.audit", msg.Topic)
}

func TestMessageRejectsUnencodable(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")
	t.Cleanup(func() { _ = p.Close() })

	_, err := p.message("x", "k", make(chan int))
	require.Error(t, err)
}
