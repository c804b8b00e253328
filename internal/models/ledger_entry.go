package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatusSuccess = "success"

// LedgerEntry is an immutable record of one completed value movement.
type LedgerEntry struct {
	ID          string          // equal to the transfer id
	FromAccount *string         // nil for system originated movements
	ToAccount   *string         // nil when the destination is a service sink
	Amount      decimal.Decimal // always positive
	Status      string          // always StatusSuccess
	Category    Category
	Note        string
	CreatedAt   time.Time
}

// Direction of an entry relative to the account viewing it.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// LedgerView is a LedgerEntry projected for one account.
type LedgerView struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Direction       Direction       `json:"type"`
	CounterpartID   string          `json:"counterpart_id"`
	CounterpartName string          `json:"counterpart_name"`
	FromID          string          `json:"from_upi"`
	FromName        string          `json:"from_name"`
	ToID            string          `json:"to_upi"`
	ToName          string          `json:"to_name"`
	Timestamp       time.Time       `json:"timestamp"`
	Status          string          `json:"status"`
	Category        Category        `json:"category"`
	Note            string          `json:"note,omitempty"`
}
