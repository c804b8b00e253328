package contacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/storage/memory"
)

func newDirectory() *Directory {
	accounts := memory.NewMemoryAccountStore(
		models.Account{ID: "a", PaymentID: "asha123@dummy", Name: "Asha Rao"},
		models.Account{ID: "b", PaymentID: "bilal456@dummy", Name: "Bilal Khan"},
		models.Account{ID: "c", PaymentID: "chen789@dummy", Name: "Chen Wu"},
		models.Account{ID: "d", PaymentID: "ashwin@dummy", Name: "Ashwin Pillai"},
	)
	return NewDirectory(memory.NewMemoryContactStore(), accounts)
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()

	require.NoError(t, d.Add(ctx, "a", "b"))
	require.NoError(t, d.Add(ctx, "a", "b"))
	require.NoError(t, d.Add(ctx, "a", "c"))

	list, err := d.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	names := []string{list[0].Name, list[1].Name}
	require.ElementsMatch(t, []string{"Bilal Khan", "Chen Wu"}, names)

	list, err = d.List(ctx, "b")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestAddRejectsUnknownAndSelf(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()

	require.ErrorIs(t, d.Add(ctx, "a", "zz"), models.ErrAccountNotFound)
	require.ErrorIs(t, d.Add(ctx, "zz", "a"), models.ErrAccountNotFound)
	require.ErrorIs(t, d.Add(ctx, "a", "a"), ErrSelfContact)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()

	found, err := d.Search(ctx, "a", "ASH")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "d", found[0].ID, "owner is excluded")

	found, err = d.Search(ctx, "b", "ash")
	require.NoError(t, err)
	require.Len(t, found, 2)

	found, err = d.Search(ctx, "a", "456@")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Bilal Khan", found[0].Name)

	found, err = d.Search(ctx, "a", "   ")
	require.NoError(t, err)
	require.Empty(t, found)

	found, err = d.Search(ctx, "a", "nomatch")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Empty(t, found)
}
