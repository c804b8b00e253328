package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models/events"
)

// DefaultCommodityRate is the gold buy price in currency units per gram.
var DefaultCommodityRate = decimal.NewFromInt(13600)

// Engine moves value between two independently stored balances.
//
// Every transfer is journaled before the debit. All steps after the debit
// carry operation refs derived from the transfer id, so a transfer that stops
// half way can be finished by the Reconciler without double applying anything.
type Engine struct {
	accounts  interfaces.AccountStore
	ledger    interfaces.LedgerStore
	journal   interfaces.TransferJournal
	publisher interfaces.EventPublisher
	logger    *zap.Logger
	rate      decimal.Decimal
	now       func() time.Time
	newID     func() string
}

type Option func(*Engine)

// WithPublisher publishes a TransferCompleted event after each commit.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCommodityRate sets the currency units paid per gram.
func WithCommodityRate(rate decimal.Decimal) Option {
	return func(e *Engine) { e.rate = rate }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(accounts interfaces.AccountStore, ledger interfaces.LedgerStore, journal interfaces.TransferJournal, opts ...Option) *Engine {
	e := &Engine{
		accounts: accounts,
		ledger:   ledger,
		journal:  journal,
		logger:   zap.NewNop(),
		rate:     DefaultCommodityRate,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer debits senderID and credits the resolved destination.
//
// Failures before the debit leave no trace besides a failed journal row.
// A debit that errors without a clear rejection, and any failure after the
// debit, is reported as *IndeterminateError (see IsUnsafe) and must not be
// retried by the caller.
func (e *Engine) Transfer(ctx context.Context, senderID string, req models.TransferRequest) (models.TransferResult, error) {
	category := req.Category
	if category == "" {
		category = models.CategoryTransfer
	}
	if err := validate(category, req); err != nil {
		return models.TransferResult{}, err
	}
	if _, err := e.effectFor(category); err != nil {
		return models.TransferResult{}, validationError("%v", err)
	}

	sender, err := e.accounts.GetAccount(ctx, senderID)
	if err != nil {
		return models.TransferResult{}, lookupError("sender", err)
	}
	if !verifyPin(sender.PinHash, req.Pin) {
		return models.TransferResult{}, ErrAuthFailed
	}

	dest, recipientName, err := e.resolveDestination(ctx, sender, category, strings.TrimSpace(req.Recipient))
	if err != nil {
		return models.TransferResult{}, err
	}

	now := e.now().UTC()
	p := models.PendingTransfer{
		ID:        e.newID(),
		SenderID:  sender.ID,
		Amount:    req.Amount,
		Category:  category,
		Note:      req.Note,
		Details:   req.Details,
		Status:    models.TransferPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if dest != nil {
		p.DestinationID = &dest.ID
	}
	log := e.logger.With(transferFields(p)...)

	if err := e.journal.Begin(ctx, p); err != nil {
		return models.TransferResult{}, internalError("journal", err)
	}

	debited, err := e.accounts.ConditionalDebit(ctx, sender.ID, p.Amount, models.DebitRef(p.ID))
	if errors.Is(err, models.ErrInsufficientFunds) {
		e.setStatus(ctx, log, p.ID, models.TransferFailed)
		log.Debug("transfer rejected", zap.Error(err))
		return models.TransferResult{}, ErrInsufficientFunds
	}
	if err != nil {
		// the debit may or may not have landed; the journal row stays pending
		log.Error("debit outcome unknown, left for reconciliation", zap.String("step", "debit"), zap.Error(err))
		return models.TransferResult{}, unsafeError(p.ID, "debit", err)
	}
	e.setStatus(ctx, log, p.ID, models.TransferDebited)

	res, err := e.complete(ctx, p, debited)
	if err != nil {
		log.Error("transfer interrupted after debit, left for reconciliation", zap.Error(err))
		return models.TransferResult{}, err
	}
	e.setStatus(ctx, log, p.ID, models.TransferCommitted)
	e.publish(ctx, log, p, res.Entry)

	res.Record = models.TransferRecord{
		ID:        res.Entry.ID,
		Amount:    res.Entry.Amount,
		Recipient: recipientName,
		Balance:   res.Balance,
		Category:  category,
	}
	log.Info("transfer committed", zap.String("balance", res.Balance.String()))
	return res, nil
}

// complete runs every step after the debit: credit, side effect and ledger
// write. Each step is idempotent on p.ID, which lets the reconciler replay it.
func (e *Engine) complete(ctx context.Context, p models.PendingTransfer, sender models.Account) (models.TransferResult, error) {
	if p.DestinationID != nil {
		if _, err := e.accounts.Credit(ctx, *p.DestinationID, p.Amount, models.CreditRef(p.ID)); err != nil {
			return models.TransferResult{}, unsafeError(p.ID, "credit", err)
		}
	}

	effect, err := e.effectFor(p.Category)
	if err != nil {
		return models.TransferResult{}, unsafeError(p.ID, "side effect", err)
	}
	updated, err := effect.apply(ctx, e.accounts, p)
	if err != nil {
		return models.TransferResult{}, unsafeError(p.ID, "side effect", err)
	}
	if updated != nil {
		sender = *updated
	}

	entry := models.LedgerEntry{
		ID:          p.ID,
		FromAccount: &p.SenderID,
		ToAccount:   p.DestinationID,
		Amount:      p.Amount,
		Status:      models.StatusSuccess,
		Category:    p.Category,
		Note:        p.Note,
		CreatedAt:   e.now().UTC(),
	}
	err = e.ledger.SaveEntry(ctx, entry)
	if errors.Is(err, models.ErrDuplicateEntry) {
		entry, err = e.ledger.GetEntry(ctx, p.ID)
	}
	if err != nil {
		return models.TransferResult{}, unsafeError(p.ID, "ledger", err)
	}

	return models.TransferResult{
		Balance:   sender.Balance,
		GoldGrams: sender.GoldGrams,
		Entry:     entry,
	}, nil
}

func (e *Engine) resolveDestination(ctx context.Context, sender models.Account, category models.Category, recipient string) (*models.Account, string, error) {
	if !category.IsTransfer() {
		sink, _ := category.Sink()
		return nil, sink.Name, nil
	}
	dest, err := e.accounts.GetAccountByPaymentID(ctx, recipient)
	if err != nil {
		return nil, "", lookupError("recipient", err)
	}
	if dest.ID == sender.ID {
		return nil, "", ErrSelfTransfer
	}
	return &dest, dest.Name, nil
}

func (e *Engine) setStatus(ctx context.Context, log *zap.Logger, id, status string) {
	if err := e.journal.UpdateStatus(ctx, id, status); err != nil {
		log.Warn("journal status update failed", zap.String("status", status), zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, log *zap.Logger, p models.PendingTransfer, entry models.LedgerEntry) {
	if e.publisher == nil {
		return
	}
	ev := events.TransferCompleted{
		TransferID:  entry.ID,
		FromAccount: p.SenderID,
		Amount:      entry.Amount,
		Category:    string(entry.Category),
		OccurredAt:  entry.CreatedAt,
	}
	if p.DestinationID != nil {
		ev.ToAccount = *p.DestinationID
	} else if sink, ok := p.Category.Sink(); ok {
		ev.Sink = sink.PaymentID
	}
	if err := e.publisher.Publish(ctx, events.TopicTransferCompleted, entry.ID, ev); err != nil {
		log.Warn("publish transfer event failed", zap.Error(err))
	}
}

func validate(category models.Category, req models.TransferRequest) error {
	if !req.Amount.IsPositive() {
		return validationError("amount must be positive")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return validationError("amount has more than 2 decimal places")
	}
	if category.IsTransfer() && strings.TrimSpace(req.Recipient) == "" {
		return validationError("recipient is required")
	}
	return nil
}

func lookupError(who string, err error) error {
	if errors.Is(err, models.ErrAccountNotFound) {
		return fmt.Errorf("%s %w", who, ErrNotFound)
	}
	return internalError(who+" lookup", err)
}

func transferFields(p models.PendingTransfer) []zap.Field {
	fields := []zap.Field{
		zap.String("transfer_id", p.ID),
		zap.String("sender", p.SenderID),
		zap.String("amount", p.Amount.String()),
		zap.String("category", string(p.Category)),
	}
	if p.DestinationID != nil {
		fields = append(fields, zap.String("destination", *p.DestinationID))
	}
	return fields
}
