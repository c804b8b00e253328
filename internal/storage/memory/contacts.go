package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
)

// MemoryContactStore is a set of contact ids per owner.
type MemoryContactStore struct {
	mu       sync.Mutex
	contacts map[string][]string // owner -> contact ids, insertion order
}

func NewMemoryContactStore() *MemoryContactStore {
	return &MemoryContactStore{contacts: make(map[string][]string)}
}

// AddContact is idempotent.
func (m *MemoryContactStore) AddContact(ctx context.Context, ownerID, contactID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.contacts[ownerID] {
		if existing == contactID {
			return nil
		}
	}
	m.contacts[ownerID] = append(m.contacts[ownerID], contactID)
	return nil
}

func (m *MemoryContactStore) ListContacts(ctx context.Context, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.contacts[ownerID]))
	copy(out, m.contacts[ownerID])
	return out, nil
}

var _ interfaces.ContactStore = (*MemoryContactStore)(nil)
