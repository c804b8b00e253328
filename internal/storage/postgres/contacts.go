package postgres

import (
	"context"
	"database/sql"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
)

type PostgresContactStore struct {
	db *sql.DB
}

func NewPostgresContactStore(db *sql.DB) *PostgresContactStore {
	return &PostgresContactStore{db: db}
}

// AddContact is idempotent. Account existence is checked by the caller,
// since accounts are not necessarily stored in postgres.
func (p *PostgresContactStore) AddContact(ctx context.Context, ownerID, contactID string) error {
	const query = `INSERT INTO contacts (owner_id, contact_id) VALUES ($1, $2)
	ON CONFLICT DO NOTHING`

	_, err := p.db.ExecContext(ctx, query, ownerID, contactID)
	return err
}

func (p *PostgresContactStore) ListContacts(ctx context.Context, ownerID string) ([]string, error) {
	const query = `SELECT contact_id FROM contacts WHERE owner_id = $1 ORDER BY created_at, contact_id`

	rows, err := p.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var _ interfaces.ContactStore = (*PostgresContactStore)(nil)
