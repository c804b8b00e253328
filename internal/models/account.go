package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metadata holds category specific details persisted on an account,
// e.g. Metadata["BILL"] = {"state": "KA", "board": "BESCOM", "consumer": "123"}.
type Metadata map[string]map[string]string

// Account is a holder of a currency balance and a commodity balance.
type Account struct {
	ID        string          // internal id
	PaymentID string          // human facing payment identifier, unique (e.g. "asha123@dummy")
	Name      string          // display name
	Balance   decimal.Decimal // never negative
	GoldGrams decimal.Decimal // commodity balance, never negative
	PinHash   string          // bcrypt hash of the numeric PIN
	Metadata  Metadata
	CreatedAt time.Time
}

// AccountPatch is merged into an account by AccountStore.MutateMetadata.
type AccountPatch struct {
	GoldDelta decimal.Decimal   // added to GoldGrams
	Category  string            // metadata key to replace, empty for none
	Details   map[string]string // replaces Metadata[Category] (last write wins)
}

// Clone returns a deep copy so callers cannot mutate store internals.
func (a Account) Clone() Account {
	out := a
	if a.Metadata != nil {
		out.Metadata = make(Metadata, len(a.Metadata))
		for k, v := range a.Metadata {
			inner := make(map[string]string, len(v))
			for ik, iv := range v {
				inner[ik] = iv
			}
			out.Metadata[k] = inner
		}
	}
	return out
}
