package memory

import (
	"cmp"
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"slices"
	"sync" // standard Go package for concurrency primitives like Mutex

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Entries are kept in insertion order and are never modified once appended.
type MemoryLedgerStore struct {
	mu      sync.RWMutex
	entries []models.LedgerEntry // append-only, insertion order
	byID    map[string]int       // entry id -> index into entries
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		entries: make([]models.LedgerEntry, 0),
		byID:    make(map[string]int),
	}
}

// SaveEntry appends a LedgerEntry. An id that was already written is rejected
// with models.ErrDuplicateEntry so retried writes cannot double-record.
func (m *MemoryLedgerStore) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[entry.ID]; exists {
		return models.ErrDuplicateEntry
	}
	m.byID[entry.ID] = len(m.entries)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryLedgerStore) GetEntry(ctx context.Context, id string) (models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byID[id]
	if !ok {
		return models.LedgerEntry{}, models.ErrEntryNotFound
	}
	return m.entries[idx], nil
}

// GetLedgerEntries returns a copy of all ledger entries stored in memory.
func (m *MemoryLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries) // return the copy so external code can't modify internal state
	return copied, nil
}

// GetEntriesByAccount returns entries touching accountId, newest first. Equal
// timestamps fall back to reverse insertion order.
func (m *MemoryLedgerStore) GetEntriesByAccount(ctx context.Context, accountId string) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if matches(e.FromAccount, accountId) || matches(e.ToAccount, accountId) {
			result = append(result, e)
		}
	}
	slices.SortStableFunc(result, func(a, b models.LedgerEntry) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return result, nil
}

func matches(ref *string, id string) bool {
	return ref != nil && *ref == id
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
