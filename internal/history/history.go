// Package history re-projects ledger entries relative to one account.
package history

import (
	"context"
	"errors"
	"iter"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

const (
	systemLabel  = "System"
	serviceLabel = "Service"
	unknownLabel = "Unknown"
)

type Service struct {
	ledger   interfaces.LedgerStore
	accounts interfaces.AccountStore
}

func NewService(ledger interfaces.LedgerStore, accounts interfaces.AccountStore) *Service {
	return &Service{ledger: ledger, accounts: accounts}
}

// History yields every entry where accountID is source or destination, newest
// first. The sequence is lazy and can be ranged over again to re-read the ledger.
func (s *Service) History(ctx context.Context, accountID string) iter.Seq2[models.LedgerView, error] {
	return func(yield func(models.LedgerView, error) bool) {
		entries, err := s.ledger.GetEntriesByAccount(ctx, accountID)
		if err != nil {
			yield(models.LedgerView{}, err)
			return
		}

		names := make(map[string]party)
		for _, e := range entries {
			view, err := s.project(ctx, accountID, e, names)
			if !yield(view, err) || err != nil {
				return
			}
		}
	}
}

// List collects History into a slice.
func (s *Service) List(ctx context.Context, accountID string) ([]models.LedgerView, error) {
	out := []models.LedgerView{}
	for view, err := range s.History(ctx, accountID) {
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

type party struct {
	id   string
	name string
}

func (s *Service) project(ctx context.Context, accountID string, e models.LedgerEntry, cache map[string]party) (models.LedgerView, error) {
	from := party{id: systemLabel, name: systemLabel}
	if e.FromAccount != nil {
		p, err := s.resolve(ctx, *e.FromAccount, cache)
		if err != nil {
			return models.LedgerView{}, err
		}
		from = p
	}

	to := party{name: serviceLabel}
	if sink, ok := e.Category.Sink(); ok {
		to.id = sink.PaymentID
	}
	if e.ToAccount != nil {
		p, err := s.resolve(ctx, *e.ToAccount, cache)
		if err != nil {
			return models.LedgerView{}, err
		}
		to = p
	}

	view := models.LedgerView{
		ID:        e.ID,
		Amount:    e.Amount,
		FromID:    from.id,
		FromName:  from.name,
		ToID:      to.id,
		ToName:    to.name,
		Timestamp: e.CreatedAt,
		Status:    e.Status,
		Category:  e.Category,
		Note:      e.Note,
	}
	if e.FromAccount != nil && *e.FromAccount == accountID {
		view.Direction = models.DirectionDebit
		view.CounterpartID, view.CounterpartName = to.id, to.name
	} else {
		view.Direction = models.DirectionCredit
		view.CounterpartID, view.CounterpartName = from.id, from.name
	}
	return view, nil
}

func (s *Service) resolve(ctx context.Context, id string, cache map[string]party) (party, error) {
	if p, ok := cache[id]; ok {
		return p, nil
	}
	acc, err := s.accounts.GetAccount(ctx, id)
	switch {
	case errors.Is(err, models.ErrAccountNotFound):
		return party{id: id, name: unknownLabel}, nil
	case err != nil:
		return party{}, err
	}
	p := party{id: acc.PaymentID, name: acc.Name}
	cache[id] = p
	return p, nil
}
