//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn), "second run is a no-op")

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seed(t *testing.T, store *PostgresAccountStore, id string, balance int64) {
	t.Helper()
	require.NoError(t, store.CreateAccount(context.Background(), models.Account{
		ID:        id,
		PaymentID: id + "@dummy",
		Name:      id + " name",
		Balance:   decimal.NewFromInt(balance),
		CreatedAt: time.Now(),
	}))
}

func TestIntegration_AccountStore(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	store := NewPostgresAccountStore(db)

	seed(t, store, "asha", 100)
	seed(t, store, "bilal", 0)

	t.Run("conditional debit", func(t *testing.T) {
		acc, err := store.ConditionalDebit(ctx, "asha", decimal.NewFromInt(40), "t1:debit")
		require.NoError(t, err)
		assert.Equal(t, "60", acc.Balance.String())

		acc, err = store.ConditionalDebit(ctx, "asha", decimal.NewFromInt(40), "t1:debit")
		require.NoError(t, err)
		assert.Equal(t, "60", acc.Balance.String(), "replayed ref is not applied twice")

		_, err = store.ConditionalDebit(ctx, "asha", decimal.NewFromInt(61), "t2:debit")
		require.ErrorIs(t, err, models.ErrInsufficientFunds)

		applied, err := store.Applied(ctx, "asha", "t2:debit")
		require.NoError(t, err)
		assert.False(t, applied, "a rejected debit leaves no ref behind")

		_, err = store.ConditionalDebit(ctx, "nobody", decimal.NewFromInt(1), "t3:debit")
		require.ErrorIs(t, err, models.ErrAccountNotFound)
	})

	t.Run("metadata and gold", func(t *testing.T) {
		acc, err := store.MutateMetadata(ctx, "bilal", models.AccountPatch{
			GoldDelta: decimal.RequireFromString("0.1234"),
			Category:  "BILL",
			Details:   map[string]string{"board": "BESCOM", "consumer": "42"},
		}, "t4:effect")
		require.NoError(t, err)
		assert.Equal(t, "0.1234", acc.GoldGrams.String())
		assert.Equal(t, "BESCOM", acc.Metadata["BILL"]["board"])

		_, err = store.MutateMetadata(ctx, "bilal", models.AccountPatch{GoldDelta: decimal.NewFromInt(-1)}, "")
		require.Error(t, err)
	})

	t.Run("search", func(t *testing.T) {
		found, err := store.SearchAccounts(ctx, "BIL", "asha")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "bilal", found[0].ID)

		found, err = store.SearchAccounts(ctx, "%", "")
		require.NoError(t, err)
		assert.Empty(t, found, "wildcards are matched literally")
	})
}

func TestIntegration_ConcurrentDebits(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	store := NewPostgresAccountStore(db)
	seed(t, store, "asha", 100)

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref := models.DebitRef(fmt.Sprintf("c%d", i))
			if _, err := store.ConditionalDebit(ctx, "asha", decimal.NewFromInt(7), ref); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	acc, err := store.GetAccount(ctx, "asha")
	require.NoError(t, err)
	assert.EqualValues(t, 14, ok.Load())
	assert.Equal(t, "2", acc.Balance.String())
}

func TestIntegration_LedgerJournalContacts(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	accounts := NewPostgresAccountStore(db)
	seed(t, accounts, "asha", 10)
	seed(t, accounts, "bilal", 10)

	ledger := NewPostgresLedgerStore(db)
	asha, bilal := "asha", "bilal"
	base := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, ledger.SaveEntry(ctx, models.LedgerEntry{ID: "e1", FromAccount: &asha, ToAccount: &bilal,
		Amount: decimal.NewFromInt(1), Status: models.StatusSuccess, Category: models.CategoryTransfer, CreatedAt: base}))
	require.NoError(t, ledger.SaveEntry(ctx, models.LedgerEntry{ID: "e2", FromAccount: &bilal,
		Amount: decimal.NewFromInt(2), Status: models.StatusSuccess, Category: models.CategoryRecharge, CreatedAt: base.Add(time.Second)}))
	err := ledger.SaveEntry(ctx, models.LedgerEntry{ID: "e1", FromAccount: &asha,
		Amount: decimal.NewFromInt(1), Status: models.StatusSuccess, Category: models.CategoryTransfer, CreatedAt: base})
	require.ErrorIs(t, err, models.ErrDuplicateEntry)
	_, err = ledger.GetEntry(ctx, "missing")
	require.ErrorIs(t, err, models.ErrEntryNotFound)

	entries, err := ledger.GetEntriesByAccount(ctx, "bilal")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2", entries[0].ID)
	assert.Nil(t, entries[0].ToAccount)
	assert.Equal(t, models.CategoryRecharge, entries[0].Category)

	journal := NewPostgresTransferJournal(db)
	require.NoError(t, journal.Begin(ctx, models.PendingTransfer{
		ID: "t1", SenderID: "asha", DestinationID: &bilal, Amount: decimal.NewFromInt(5),
		Category: models.CategoryTransfer, Status: models.TransferPending, CreatedAt: base.Add(-time.Hour),
	}))
	stale, err := journal.ListStale(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "bilal", *stale[0].DestinationID)

	require.NoError(t, journal.UpdateStatus(ctx, "t1", models.TransferCommitted))
	stale, err = journal.ListStale(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)
	require.ErrorIs(t, journal.UpdateStatus(ctx, "nope", models.TransferFailed), models.ErrTransferNotFound)

	contacts := NewPostgresContactStore(db)
	require.NoError(t, contacts.AddContact(ctx, "asha", "bilal"))
	require.NoError(t, contacts.AddContact(ctx, "asha", "bilal"))
	ids, err := contacts.ListContacts(ctx, "asha")
	require.NoError(t, err)
	assert.Equal(t, []string{"bilal"}, ids)

	// accounts held in redis never appear in the accounts table
	require.NoError(t, contacts.AddContact(ctx, "redis-owner", "redis-contact"))
	ids, err = contacts.ListContacts(ctx, "redis-owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"redis-contact"}, ids)
}
