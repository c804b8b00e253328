package transfer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

// sideEffect is applied to the sender after the money has moved. It returns
// the sender as updated by the effect, or nil when nothing was changed.
// Implementations must pass models.EffectRef so a replay is a no-op.
type sideEffect interface {
	apply(ctx context.Context, accounts interfaces.AccountStore, p models.PendingTransfer) (*models.Account, error)
}

type noEffect struct{}

func (noEffect) apply(context.Context, interfaces.AccountStore, models.PendingTransfer) (*models.Account, error) {
	return nil, nil
}

// billEffect remembers the utility account the sender paid.
type billEffect struct{}

func (billEffect) apply(ctx context.Context, accounts interfaces.AccountStore, p models.PendingTransfer) (*models.Account, error) {
	if len(p.Details) == 0 {
		return nil, nil
	}
	acc, err := accounts.MutateMetadata(ctx, p.SenderID, models.AccountPatch{
		Category: string(models.CategoryBill),
		Details:  p.Details,
	}, models.EffectRef(p.ID))
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// commodityEffect converts the paid amount to grams at a fixed rate.
type commodityEffect struct {
	rate decimal.Decimal // currency units per gram
}

func (c commodityEffect) apply(ctx context.Context, accounts interfaces.AccountStore, p models.PendingTransfer) (*models.Account, error) {
	acc, err := accounts.MutateMetadata(ctx, p.SenderID, models.AccountPatch{
		GoldDelta: Grams(p.Amount, c.rate),
	}, models.EffectRef(p.ID))
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Grams is amount/rate rounded to 4 decimal places.
func Grams(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Div(rate).Round(4)
}

func (e *Engine) effectFor(c models.Category) (sideEffect, error) {
	switch c {
	case models.CategoryTransfer, models.CategoryRecharge:
		return noEffect{}, nil
	case models.CategoryBill:
		return billEffect{}, nil
	case models.CategoryCommodity:
		return commodityEffect{rate: e.rate}, nil
	}
	return nil, fmt.Errorf("no side effect for category %q", c)
}
