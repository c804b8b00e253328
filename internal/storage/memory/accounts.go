package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

// MemoryAccountStore keeps accounts in a map guarded by one mutex. Holding the
// mutex across check and update is what makes ConditionalDebit indivisible.
type MemoryAccountStore struct {
	mu          sync.Mutex
	accounts    map[string]*models.Account     // id -> account
	byPaymentID map[string]string              // payment id -> id
	applied     map[string]map[string]struct{} // id -> applied operation refs
}

func NewMemoryAccountStore(seed ...models.Account) *MemoryAccountStore {
	s := &MemoryAccountStore{
		accounts:    make(map[string]*models.Account),
		byPaymentID: make(map[string]string),
		applied:     make(map[string]map[string]struct{}),
	}
	for _, acc := range seed {
		// seeds are built by the caller; a clash is a programming error
		if err := s.CreateAccount(context.Background(), acc); err != nil {
			panic(err)
		}
	}
	return s
}

func (s *MemoryAccountStore) CreateAccount(ctx context.Context, acc models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[acc.ID]; exists {
		return fmt.Errorf("account %s already exists", acc.ID)
	}
	if _, exists := s.byPaymentID[acc.PaymentID]; exists {
		return fmt.Errorf("payment id %s already taken", acc.PaymentID)
	}
	if acc.Balance.IsNegative() || acc.GoldGrams.IsNegative() {
		return fmt.Errorf("account %s: negative opening balance", acc.ID)
	}
	stored := acc.Clone()
	s.accounts[acc.ID] = &stored
	s.byPaymentID[acc.PaymentID] = acc.ID
	s.applied[acc.ID] = make(map[string]struct{})
	return nil
}

func (s *MemoryAccountStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (s *MemoryAccountStore) GetAccountByPaymentID(ctx context.Context, paymentID string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPaymentID[paymentID]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

// SearchAccounts matches name or payment id case-insensitively, ordered by name.
func (s *MemoryAccountStore) SearchAccounts(ctx context.Context, query, excludeID string) ([]models.Account, error) {
	q := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Account
	for id, acc := range s.accounts {
		if id == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(acc.Name), q) || strings.Contains(strings.ToLower(acc.PaymentID), q) {
			out = append(out, acc.Clone())
		}
	}
	slices.SortFunc(out, func(a, b models.Account) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.PaymentID, b.PaymentID)
	})
	return out, nil
}

func (s *MemoryAccountStore) ConditionalDebit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error) {
	return s.apply(id, ref, func(acc *models.Account) error {
		if acc.Balance.LessThan(amount) {
			return models.ErrInsufficientFunds
		}
		acc.Balance = acc.Balance.Sub(amount)
		return nil
	})
}

func (s *MemoryAccountStore) Credit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error) {
	return s.apply(id, ref, func(acc *models.Account) error {
		acc.Balance = acc.Balance.Add(amount)
		return nil
	})
}

func (s *MemoryAccountStore) MutateMetadata(ctx context.Context, id string, patch models.AccountPatch, ref string) (models.Account, error) {
	return s.apply(id, ref, func(acc *models.Account) error {
		gold := acc.GoldGrams.Add(patch.GoldDelta)
		if gold.IsNegative() {
			return fmt.Errorf("account %s: commodity balance would go negative", id)
		}
		acc.GoldGrams = gold
		if patch.Category != "" {
			if acc.Metadata == nil {
				acc.Metadata = make(models.Metadata)
			}
			details := make(map[string]string, len(patch.Details))
			for k, v := range patch.Details {
				details[k] = v
			}
			acc.Metadata[patch.Category] = details
		}
		return nil
	})
}

func (s *MemoryAccountStore) Applied(ctx context.Context, id, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, ok := s.applied[id]
	if !ok {
		return false, models.ErrAccountNotFound
	}
	_, done := refs[ref]
	return done, nil
}

// apply runs mutate under the store lock. The account is only changed when
// mutate succeeds, and a ref already seen short-circuits to the current state.
func (s *MemoryAccountStore) apply(id, ref string, mutate func(*models.Account) error) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	if ref != "" {
		if _, done := s.applied[id][ref]; done {
			return acc.Clone(), nil
		}
	}

	next := acc.Clone()
	if err := mutate(&next); err != nil {
		return models.Account{}, err
	}
	*acc = next
	if ref != "" {
		s.applied[id][ref] = struct{}{}
	}
	return acc.Clone(), nil
}

var _ interfaces.AccountStore = (*MemoryAccountStore)(nil)
