package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

const accountColumns = `id, payment_id, name, balance, gold_grams, pin_hash, metadata, created_at`

// PostgresAccountStore relies on row locks taken by single UPDATE statements
// for indivisible check-and-set, and on account_operations for ref dedupe.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		acc      models.Account
		metadata []byte
	)
	err := row.Scan(&acc.ID, &acc.PaymentID, &acc.Name, &acc.Balance, &acc.GoldGrams, &acc.PinHash, &metadata, &acc.CreatedAt)
	if err != nil {
		return models.Account{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &acc.Metadata); err != nil {
			return models.Account{}, fmt.Errorf("decode metadata of %s: %w", acc.ID, err)
		}
	}
	if len(acc.Metadata) == 0 {
		acc.Metadata = nil
	}
	return acc, nil
}

func (p *PostgresAccountStore) CreateAccount(ctx context.Context, acc models.Account) error {
	if acc.Balance.IsNegative() || acc.GoldGrams.IsNegative() {
		return fmt.Errorf("account %s: negative opening balance", acc.ID)
	}
	metadata, err := json.Marshal(acc.Metadata)
	if err != nil {
		return err
	}
	if acc.Metadata == nil {
		metadata = []byte("{}")
	}

	const query = `INSERT INTO accounts (` + accountColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = p.db.ExecContext(ctx, query, acc.ID, acc.PaymentID, acc.Name, acc.Balance, acc.GoldGrams, acc.PinHash, metadata, acc.CreatedAt.UTC())
	if isCode(err, codeUniqueViolation) {
		return fmt.Errorf("account %s or payment id %s already exists", acc.ID, acc.PaymentID)
	}
	return err
}

func (p *PostgresAccountStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return p.getOne(ctx, query, id)
}

func (p *PostgresAccountStore) GetAccountByPaymentID(ctx context.Context, paymentID string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE payment_id = $1`
	return p.getOne(ctx, query, paymentID)
}

func (p *PostgresAccountStore) getOne(ctx context.Context, query string, arg string) (models.Account, error) {
	acc, err := scanAccount(p.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.ErrAccountNotFound
	}
	return acc, err
}

// SearchAccounts matches name or payment id case-insensitively, ordered by name.
func (p *PostgresAccountStore) SearchAccounts(ctx context.Context, query, excludeID string) ([]models.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts
	WHERE id <> $2 AND (name ILIKE $1 ESCAPE '\' OR payment_id ILIKE $1 ESCAPE '\')
	ORDER BY name, payment_id`

	rows, err := p.db.QueryContext(ctx, q, "%"+escapeLike(query)+"%", excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (p *PostgresAccountStore) ConditionalDebit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error) {
	const query = `UPDATE accounts SET balance = balance - $2
	WHERE id = $1 AND balance >= $2
	RETURNING ` + accountColumns

	return p.apply(ctx, id, ref, models.ErrInsufficientFunds, query, id, amount)
}

func (p *PostgresAccountStore) Credit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error) {
	const query = `UPDATE accounts SET balance = balance + $2
	WHERE id = $1
	RETURNING ` + accountColumns

	return p.apply(ctx, id, ref, nil, query, id, amount)
}

func (p *PostgresAccountStore) MutateMetadata(ctx context.Context, id string, patch models.AccountPatch, ref string) (models.Account, error) {
	details, err := json.Marshal(patch.Details)
	if err != nil {
		return models.Account{}, err
	}
	if patch.Details == nil {
		details = []byte("{}")
	}

	const query = `UPDATE accounts SET
		gold_grams = gold_grams + $2,
		metadata = CASE WHEN $3 = '' THEN metadata
			ELSE metadata || jsonb_build_object($3::text, $4::jsonb) END
	WHERE id = $1 AND gold_grams + $2 >= 0
	RETURNING ` + accountColumns

	negative := fmt.Errorf("account %s: commodity balance would go negative", id)
	return p.apply(ctx, id, ref, negative, query, id, patch.GoldDelta, patch.Category, details)
}

func (p *PostgresAccountStore) Applied(ctx context.Context, id, ref string) (bool, error) {
	const query = `SELECT
		EXISTS (SELECT 1 FROM accounts WHERE id = $1),
		EXISTS (SELECT 1 FROM account_operations WHERE account_id = $1 AND ref = $2)`

	var exists, done bool
	if err := p.db.QueryRowContext(ctx, query, id, ref).Scan(&exists, &done); err != nil {
		return false, err
	}
	if !exists {
		return false, models.ErrAccountNotFound
	}
	return done, nil
}

// apply records ref and runs update in one transaction. A ref that is already
// recorded short-circuits to the current row. When update matches no row,
// guardErr is returned if the account exists.
func (p *PostgresAccountStore) apply(ctx context.Context, id, ref string, guardErr error, update string, args ...any) (models.Account, error) {
	var acc models.Account
	err := withTx(ctx, p.db, func(tx *sql.Tx) error {
		if ref != "" {
			const record = `INSERT INTO account_operations (account_id, ref) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`

			res, err := tx.ExecContext(ctx, record, id, ref)
			if isCode(err, codeForeignKeyViolation) {
				return models.ErrAccountNotFound
			}
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				const current = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
				acc, err = scanAccount(tx.QueryRowContext(ctx, current, id))
				return err
			}
		}

		var err error
		acc, err = scanAccount(tx.QueryRowContext(ctx, update, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return guardFailure(ctx, tx, id, guardErr)
		}
		return err
	})
	if err != nil {
		return models.Account{}, err
	}
	return acc, nil
}

func guardFailure(ctx context.Context, tx *sql.Tx, id string, guardErr error) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists || guardErr == nil {
		return models.ErrAccountNotFound
	}
	return guardErr
}

var _ interfaces.AccountStore = (*PostgresAccountStore)(nil)
