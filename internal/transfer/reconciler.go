package transfer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

// Reconciler finishes or compensates transfers whose journal row never
// reached a terminal status.
type Reconciler struct {
	engine     *Engine
	staleAfter time.Duration
	logger     *zap.Logger
}

// Report counts what one reconciliation pass did.
type Report struct {
	Committed int
	Failed    int
	Refunded  int
	Skipped   int
}

// NewReconciler resolves transfers idle for longer than staleAfter. In-flight
// transfers younger than that are left alone.
func NewReconciler(engine *Engine, staleAfter time.Duration) *Reconciler {
	return &Reconciler{
		engine:     engine,
		staleAfter: staleAfter,
		logger:     engine.logger.Named("reconciler"),
	}
}

// Run calls RunOnce every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rep, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error("reconciliation pass failed", zap.Error(err))
				continue
			}
			if rep != (Report{}) {
				r.logger.Info("reconciliation pass",
					zap.Int("committed", rep.Committed),
					zap.Int("failed", rep.Failed),
					zap.Int("refunded", rep.Refunded),
					zap.Int("skipped", rep.Skipped),
				)
			}
		}
	}
}

// RunOnce resolves every stale transfer:
//   - debit never applied: failed
//   - debit applied: rolled forward (credit, side effect, ledger) and committed
//   - debit applied but the destination is gone: sender refunded
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var rep Report

	cutoff := r.engine.now().UTC().Add(-r.staleAfter)
	stale, err := r.engine.journal.ListStale(ctx, cutoff)
	if err != nil {
		return rep, err
	}

	for _, p := range stale {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		status, err := r.resolve(ctx, p)
		log := r.logger.With(transferFields(p)...)
		if err != nil {
			rep.Skipped++
			log.Error("transfer not resolved", zap.Error(err))
			continue
		}
		if err := r.engine.journal.UpdateStatus(ctx, p.ID, status); err != nil {
			rep.Skipped++
			log.Error("journal status update failed", zap.String("status", status), zap.Error(err))
			continue
		}
		switch status {
		case models.TransferCommitted:
			rep.Committed++
		case models.TransferFailed:
			rep.Failed++
		case models.TransferRefunded:
			rep.Refunded++
		}
		log.Warn("transfer reconciled", zap.String("status", status))
	}
	return rep, nil
}

func (r *Reconciler) resolve(ctx context.Context, p models.PendingTransfer) (string, error) {
	debited, err := r.engine.accounts.Applied(ctx, p.SenderID, models.DebitRef(p.ID))
	if err != nil {
		return "", err
	}
	if !debited {
		return models.TransferFailed, nil
	}

	if p.DestinationID != nil {
		_, err := r.engine.accounts.GetAccount(ctx, *p.DestinationID)
		if errors.Is(err, models.ErrAccountNotFound) {
			if _, err := r.engine.accounts.Credit(ctx, p.SenderID, p.Amount, models.RefundRef(p.ID)); err != nil {
				return "", err
			}
			return models.TransferRefunded, nil
		}
		if err != nil {
			return "", err
		}
	}

	sender, err := r.engine.accounts.GetAccount(ctx, p.SenderID)
	if err != nil {
		return "", err
	}
	if _, err := r.engine.complete(ctx, p, sender); err != nil {
		return "", err
	}
	return models.TransferCommitted, nil
}
