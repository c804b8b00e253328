package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

// MemoryTransferJournal holds in-flight transfers keyed by transfer id.
type MemoryTransferJournal struct {
	mu        sync.Mutex
	transfers map[string]models.PendingTransfer
	now       func() time.Time
}

type JournalOption func(*MemoryTransferJournal)

// WithJournalClock sets the clock that stamps UpdatedAt. It should be the
// same clock the engine and reconciler use.
func WithJournalClock(now func() time.Time) JournalOption {
	return func(j *MemoryTransferJournal) { j.now = now }
}

func NewMemoryTransferJournal(opts ...JournalOption) *MemoryTransferJournal {
	j := &MemoryTransferJournal{
		transfers: make(map[string]models.PendingTransfer),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *MemoryTransferJournal) Begin(ctx context.Context, p models.PendingTransfer) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.transfers[p.ID]; exists {
		return fmt.Errorf("transfer %s already journaled", p.ID)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	j.transfers[p.ID] = p
	return nil
}

func (j *MemoryTransferJournal) UpdateStatus(ctx context.Context, id, status string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	p, ok := j.transfers[id]
	if !ok {
		return models.ErrTransferNotFound
	}
	p.Status = status
	p.UpdatedAt = j.now().UTC()
	j.transfers[id] = p
	return nil
}

func (j *MemoryTransferJournal) GetTransfer(ctx context.Context, id string) (models.PendingTransfer, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	p, ok := j.transfers[id]
	if !ok {
		return models.PendingTransfer{}, models.ErrTransferNotFound
	}
	return p, nil
}

func (j *MemoryTransferJournal) ListStale(ctx context.Context, cutoff time.Time) ([]models.PendingTransfer, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []models.PendingTransfer
	for _, p := range j.transfers {
		if p.Status != models.TransferPending && p.Status != models.TransferDebited {
			continue
		}
		if p.UpdatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.PendingTransfer) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

var _ interfaces.TransferJournal = (*MemoryTransferJournal)(nil)
