package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest is the caller's intent to move value.
type TransferRequest struct {
	Recipient string // destination payment identifier, ignored for service categories
	Amount    decimal.Decimal
	Note      string
	Category  Category // zero value means TRANSFER
	Pin       string
	Details   map[string]string // category specific payload (bill account details)
}

// TransferRecord is the summary returned to the caller on success.
type TransferRecord struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
	Balance   decimal.Decimal `json:"balance"`
	Category  Category        `json:"category"`
}

// TransferResult is returned by a successful transfer.
type TransferResult struct {
	Balance   decimal.Decimal
	GoldGrams decimal.Decimal
	Entry     LedgerEntry
	Record    TransferRecord
}

// Journal statuses of a PendingTransfer.
const (
	TransferPending   = "pending"
	TransferDebited   = "debited"
	TransferCommitted = "committed"
	TransferFailed    = "failed"
	TransferRefunded  = "refunded"
)

// PendingTransfer is the durable journal row written before the debit so an
// interrupted transfer can be completed or compensated later.
type PendingTransfer struct {
	ID            string
	SenderID      string
	DestinationID *string // nil for service sinks
	Amount        decimal.Decimal
	Category      Category
	Note          string
	Details       map[string]string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Operation refs derived from a transfer id. Stores apply each ref at most once.
func DebitRef(id string) string  { return id + ":debit" }
func CreditRef(id string) string { return id + ":credit" }
func EffectRef(id string) string { return id + ":effect" }
func RefundRef(id string) string { return id + ":refund" }
