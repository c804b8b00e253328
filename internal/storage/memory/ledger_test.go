package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

func strPtr(s string) *string { return &s }

func TestLedgerStoreOrderingAndDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	entries := []models.LedgerEntry{
		{ID: "e1", FromAccount: strPtr("a"), ToAccount: strPtr("b"), Amount: dec("1"), CreatedAt: base},
		{ID: "e2", FromAccount: strPtr("b"), ToAccount: strPtr("a"), Amount: dec("2"), CreatedAt: base.Add(time.Minute)},
		{ID: "e3", FromAccount: strPtr("a"), Amount: dec("3"), Category: models.CategoryRecharge, CreatedAt: base.Add(time.Minute)},
		{ID: "e4", FromAccount: strPtr("b"), ToAccount: strPtr("c"), Amount: dec("4"), CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, store.SaveEntry(ctx, e))
	}
	require.ErrorIs(t, store.SaveEntry(ctx, entries[0]), models.ErrDuplicateEntry)

	got, err := store.GetEntriesByAccount(ctx, "a")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []string{"e3", "e2", "e1"}, ids)

	all, err := store.GetLedgerEntries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	e, err := store.GetEntry(ctx, "e4")
	require.NoError(t, err)
	require.Equal(t, "c", *e.ToAccount)
	_, err = store.GetEntry(ctx, "nope")
	require.ErrorIs(t, err, models.ErrEntryNotFound)
}

func TestContactStoreIsASet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryContactStore()

	require.NoError(t, store.AddContact(ctx, "a", "b"))
	require.NoError(t, store.AddContact(ctx, "a", "b"))
	require.NoError(t, store.AddContact(ctx, "a", "c"))

	ids, err := store.ListContacts(ctx, "a")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b", "c"}, ids)

	ids, err = store.ListContacts(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestJournalListStale(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	j := NewMemoryTransferJournal(WithJournalClock(func() time.Time { return base.Add(time.Hour) }))

	require.NoError(t, j.Begin(ctx, models.PendingTransfer{ID: "t1", Status: models.TransferPending, CreatedAt: base}))
	require.NoError(t, j.Begin(ctx, models.PendingTransfer{ID: "t2", Status: models.TransferPending, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, j.Begin(ctx, models.PendingTransfer{ID: "t3", Status: models.TransferPending, CreatedAt: base.Add(2 * time.Second)}))
	require.Error(t, j.Begin(ctx, models.PendingTransfer{ID: "t1"}))

	require.NoError(t, j.UpdateStatus(ctx, "t2", models.TransferCommitted))
	require.NoError(t, j.UpdateStatus(ctx, "t3", models.TransferDebited))
	require.ErrorIs(t, j.UpdateStatus(ctx, "t9", models.TransferFailed), models.ErrTransferNotFound)

	t2, err := j.GetTransfer(ctx, "t2")
	require.NoError(t, err)
	require.Equal(t, base.Add(time.Hour), t2.UpdatedAt, "status changes are stamped by the journal clock")

	stale, err := j.ListStale(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, "t1", stale[0].ID)

	stale, err = j.ListStale(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 2)
	require.Equal(t, "t1", stale[0].ID)
	require.Equal(t, "t3", stale[1].ID)
}
