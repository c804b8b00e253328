package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

// AccountStore is the only place balances are read-modify-written.
//
// Every mutating primitive takes an operation ref. A non-empty ref is applied
// at most once per account; a replay returns the current account unchanged.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc models.Account) error
	GetAccount(ctx context.Context, id string) (models.Account, error)
	GetAccountByPaymentID(ctx context.Context, paymentID string) (models.Account, error)
	SearchAccounts(ctx context.Context, query, excludeID string) ([]models.Account, error)

	// ConditionalDebit decrements the balance only if it covers amount, as one
	// indivisible step. Returns models.ErrInsufficientFunds with no effect otherwise.
	ConditionalDebit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error)
	Credit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error)
	MutateMetadata(ctx context.Context, id string, patch models.AccountPatch, ref string) (models.Account, error)
	Applied(ctx context.Context, id, ref string) (bool, error)
}

// LedgerStore is append-only.
type LedgerStore interface {
	// SaveEntry returns models.ErrDuplicateEntry if an entry with the same id exists.
	SaveEntry(ctx context.Context, entry models.LedgerEntry) error
	GetEntry(ctx context.Context, id string) (models.LedgerEntry, error)
	// GetEntriesByAccount returns entries where the account is source or
	// destination, newest first.
	GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
}

type ContactStore interface {
	AddContact(ctx context.Context, ownerID, contactID string) error
	ListContacts(ctx context.Context, ownerID string) ([]string, error)
}

// TransferJournal persists in-flight transfers for the reconciler.
type TransferJournal interface {
	Begin(ctx context.Context, p models.PendingTransfer) error
	UpdateStatus(ctx context.Context, id, status string) error
	GetTransfer(ctx context.Context, id string) (models.PendingTransfer, error)
	// ListStale returns pending or debited transfers last updated before cutoff, oldest first.
	ListStale(ctx context.Context, cutoff time.Time) ([]models.PendingTransfer, error)
}
