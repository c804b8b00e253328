package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

const transferColumns = `id, sender_id, destination_id, amount, category, note, details, status, created_at, updated_at`

type PostgresTransferJournal struct {
	db *sql.DB
}

func NewPostgresTransferJournal(db *sql.DB) *PostgresTransferJournal {
	return &PostgresTransferJournal{db: db}
}

func (p *PostgresTransferJournal) Begin(ctx context.Context, t models.PendingTransfer) error {
	details := []byte("{}")
	if len(t.Details) > 0 {
		var err error
		if details, err = json.Marshal(t.Details); err != nil {
			return err
		}
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	const query = `INSERT INTO transfers (` + transferColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := p.db.ExecContext(ctx, query, t.ID, t.SenderID, t.DestinationID, t.Amount, string(t.Category),
		t.Note, details, t.Status, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if isCode(err, codeUniqueViolation) {
		return fmt.Errorf("transfer %s already journaled", t.ID)
	}
	return err
}

func (p *PostgresTransferJournal) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE transfers SET status = $2, updated_at = now() WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return models.ErrTransferNotFound
	}
	return nil
}

func (p *PostgresTransferJournal) GetTransfer(ctx context.Context, id string) (models.PendingTransfer, error) {
	const query = `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`

	t, err := scanTransfer(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PendingTransfer{}, models.ErrTransferNotFound
	}
	return t, err
}

func (p *PostgresTransferJournal) ListStale(ctx context.Context, cutoff time.Time) ([]models.PendingTransfer, error) {
	const query = `SELECT ` + transferColumns + ` FROM transfers
	WHERE status IN ('pending', 'debited') AND updated_at < $1
	ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PendingTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransfer(row rowScanner) (models.PendingTransfer, error) {
	var (
		t           models.PendingTransfer
		destination sql.NullString
		category    string
		details     []byte
	)
	err := row.Scan(&t.ID, &t.SenderID, &destination, &t.Amount, &category, &t.Note, &details, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.PendingTransfer{}, err
	}
	t.DestinationID = nullable(destination)
	t.Category = models.Category(category)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &t.Details); err != nil {
			return models.PendingTransfer{}, fmt.Errorf("decode details of %s: %w", t.ID, err)
		}
	}
	if len(t.Details) == 0 {
		t.Details = nil
	}
	return t, nil
}

var _ interfaces.TransferJournal = (*PostgresTransferJournal)(nil)
