package postgres

import (
	"context"
	"database/sql"
	"errors"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

const entryColumns = `id, from_account, to_account, amount, status, category, note, created_at`

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

func (p *PostgresLedgerStore) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries (` + entryColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := p.db.ExecContext(ctx, query, entry.ID, entry.FromAccount, entry.ToAccount, entry.Amount,
		entry.Status, string(entry.Category), entry.Note, entry.CreatedAt.UTC())
	if isCode(err, codeUniqueViolation) {
		return models.ErrDuplicateEntry
	}
	return err
}

func (p *PostgresLedgerStore) GetEntry(ctx context.Context, id string) (models.LedgerEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	entry, err := scanEntry(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.LedgerEntry{}, models.ErrEntryNotFound
	}
	return entry, err
}

func (p *PostgresLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY seq`
	return p.query(ctx, query)
}

// GetEntriesByAccount returns entries touching accountId, newest first.
func (p *PostgresLedgerStore) GetEntriesByAccount(ctx context.Context, accountId string) ([]models.LedgerEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM ledger_entries
	WHERE from_account = $1 OR to_account = $1
	ORDER BY created_at DESC, seq DESC`

	return p.query(ctx, query, accountId)
}

func (p *PostgresLedgerStore) query(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntry(row rowScanner) (models.LedgerEntry, error) {
	var (
		entry    models.LedgerEntry
		from, to sql.NullString
		category string
	)
	err := row.Scan(&entry.ID, &from, &to, &entry.Amount, &entry.Status, &category, &entry.Note, &entry.CreatedAt)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	entry.FromAccount = nullable(from)
	entry.ToAccount = nullable(to)
	entry.Category = models.Category(category)
	return entry, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
