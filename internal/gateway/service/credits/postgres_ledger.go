package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"focalai/internal/gateway/entity"
)

type PostgresLedger struct {
	db         *sql.DB
	initial    int
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresLedger(db *sql.DB, initial int) *PostgresLedger {
	return &PostgresLedger{db: db, initial: initial}
}

func (l *PostgresLedger) ensureSchema() error {
	if l == nil || l.db == nil {
		return fmt.Errorf("db is nil")
	}
	l.schemaOnce.Do(func() {
		_, l.schemaErr = l.db.Exec(`
CREATE TABLE IF NOT EXISTS credit_balances (
    user_id TEXT PRIMARY KEY,
    balance INTEGER NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS credit_transactions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    delta INTEGER NOT NULL,
    reason TEXT NOT NULL,
    balance INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_credit_tx_user_created ON credit_transactions(user_id, created_at DESC);
`)
	})
	return l.schemaErr
}

// seed creates the balance row with the initial grant if it is missing.
func (l *PostgresLedger) seed(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, user entity.UserID) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO credit_balances (user_id, balance)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING
`, user.String(), l.initial)
	return err
}

func (l *PostgresLedger) Balance(ctx context.Context, user entity.UserID) (int, error) {
	if err := l.ensureSchema(); err != nil {
		return 0, err
	}
	var bal int
	err := l.db.QueryRowContext(ctx, `SELECT balance FROM credit_balances WHERE user_id=$1`, user.String()).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return l.initial, nil
	}
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return bal, nil
}

func (l *PostgresLedger) Deduct(ctx context.Context, user entity.UserID, amount int, reason string) (int, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	return l.apply(ctx, user, -amount, reason)
}

func (l *PostgresLedger) Refund(ctx context.Context, user entity.UserID, amount int, reason string) (int, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	return l.apply(ctx, user, amount, reason)
}

func (l *PostgresLedger) apply(ctx context.Context, user entity.UserID, delta int, reason string) (int, error) {
	if err := l.ensureSchema(); err != nil {
		return 0, err
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := l.seed(ctx, tx, user); err != nil {
		return 0, fmt.Errorf("seed credits: %w", err)
	}
	var bal int
	err = tx.QueryRowContext(ctx, `
UPDATE credit_balances
SET balance = balance + $2, updated_at = NOW()
WHERE user_id = $1 AND balance + $2 >= 0
RETURNING balance
`, user.String(), delta).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		cur := 0
		_ = tx.QueryRowContext(ctx, `SELECT balance FROM credit_balances WHERE user_id=$1`, user.String()).Scan(&cur)
		return cur, fmt.Errorf("%w: balance %d, need %d", ErrInsufficient, cur, -delta)
	}
	if err != nil {
		return 0, fmt.Errorf("update credits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO credit_transactions (id, user_id, delta, reason, balance, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, uuid.NewString(), user.String(), delta, reason, bal, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("record credit transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}

func (l *PostgresLedger) Transactions(ctx context.Context, user entity.UserID, limit int) ([]Transaction, error) {
	if err := l.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, `
SELECT id, user_id, delta, reason, balance, created_at
FROM credit_transactions
WHERE user_id=$1
ORDER BY created_at DESC
LIMIT $2
`, user.String(), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0, 16)
	for rows.Next() {
		var (
			t   Transaction
			uid string
		)
		if err := rows.Scan(&t.ID, &uid, &t.Delta, &t.Reason, &t.Balance, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.UserID = entity.UserID(uid)
		out = append(out, t)
	}
	return out, rows.Err()
}
