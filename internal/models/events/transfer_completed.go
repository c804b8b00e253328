package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const TopicTransferCompleted = "transfer_completed"

type TransferCompleted struct {
	TransferID  string          `json:"transfer_id"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account,omitempty"`
	Sink        string          `json:"sink,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
