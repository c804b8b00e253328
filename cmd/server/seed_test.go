package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/config"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/storage/memory"
)

func TestSeedDemoIsRepeatable(t *testing.T) {
	ctx := context.Background()
	accounts := memory.NewMemoryAccountStore()

	require.NoError(t, seedDemo(ctx, accounts, zap.NewNop()))
	require.NoError(t, seedDemo(ctx, accounts, zap.NewNop()))

	acc, err := accounts.GetAccountByPaymentID(ctx, "asha@dummy")
	require.NoError(t, err)
	require.Equal(t, "10000", acc.Balance.String())
	require.NotEmpty(t, acc.PinHash)
}

func TestOpenMemoryStores(t *testing.T) {
	st, err := openStores(context.Background(), config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	require.NotNil(t, st.accounts)
	require.NotNil(t, st.ledger)
	require.NotNil(t, st.contacts)
	require.NotNil(t, st.journal)
	require.Equal(t, config.DriverMemory, st.accountsDriver)
}
