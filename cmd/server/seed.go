package main

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/transfer"
)

const demoPin = "1234"

var demoAccounts = []models.Account{
	{ID: "acc-asha", PaymentID: "asha@dummy", Name: "Asha Rao"},
	{ID: "acc-bilal", PaymentID: "bilal@dummy", Name: "Bilal Khan"},
	{ID: "acc-chen", PaymentID: "chen@dummy", Name: "Chen Wu"},
}

// seedDemo opens the demo accounts with 10000 each. Accounts that already
// exist are left as they are.
func seedDemo(ctx context.Context, accounts interfaces.AccountStore, logger *zap.Logger) error {
	hash, err := transfer.HashPin(demoPin)
	if err != nil {
		return err
	}
	for _, acc := range demoAccounts {
		_, err := accounts.GetAccount(ctx, acc.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrAccountNotFound) {
			return err
		}
		acc.Balance = decimal.NewFromInt(10000)
		acc.PinHash = hash
		acc.CreatedAt = time.Now().UTC()
		if err := accounts.CreateAccount(ctx, acc); err != nil {
			return err
		}
		logger.Info("seeded demo account", zap.String("id", acc.ID), zap.String("payment_id", acc.PaymentID))
	}
	return nil
}
