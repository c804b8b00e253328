package contacts

import (
	"context"
	"errors"
	"strings"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

var ErrSelfContact = errors.New("cannot add yourself as a contact")

// Directory is the set of accounts each owner has saved.
type Directory struct {
	contacts interfaces.ContactStore
	accounts interfaces.AccountStore
}

func NewDirectory(contacts interfaces.ContactStore, accounts interfaces.AccountStore) *Directory {
	return &Directory{contacts: contacts, accounts: accounts}
}

// Add saves contactID for ownerID. Adding an existing contact is a no-op.
func (d *Directory) Add(ctx context.Context, ownerID, contactID string) error {
	if ownerID == contactID {
		return ErrSelfContact
	}
	if _, err := d.accounts.GetAccount(ctx, ownerID); err != nil {
		return err
	}
	if _, err := d.accounts.GetAccount(ctx, contactID); err != nil {
		return err
	}
	return d.contacts.AddContact(ctx, ownerID, contactID)
}

func (d *Directory) List(ctx context.Context, ownerID string) ([]models.Account, error) {
	ids, err := d.contacts.ListContacts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		acc, err := d.accounts.GetAccount(ctx, id)
		if errors.Is(err, models.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

// Search matches name or payment id case-insensitively, never returning the
// owner. An empty query matches nothing.
func (d *Directory) Search(ctx context.Context, ownerID, query string) ([]models.Account, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Account{}, nil
	}
	found, err := d.accounts.SearchAccounts(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []models.Account{}
	}
	return found, nil
}
