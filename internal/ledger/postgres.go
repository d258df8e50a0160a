package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// schema is applied at startup. Table creation is idempotent; the singleton
// column guarantees at most one cash box row per deployment.
const schema = `
CREATE TABLE IF NOT EXISTS cash_boxes (
    id UUID PRIMARY KEY,
    singleton BOOLEAN NOT NULL DEFAULT TRUE UNIQUE CHECK (singleton),
    total_balance NUMERIC(14,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS denominations (
    id UUID PRIMARY KEY,
    cash_box_id UUID NOT NULL REFERENCES cash_boxes (id),
    value INTEGER NOT NULL UNIQUE,
    quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)
);

CREATE TABLE IF NOT EXISTS movements (
    id UUID PRIMARY KEY,
    cash_box_id UUID NOT NULL REFERENCES cash_boxes (id),
    amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
    movement_type TEXT NOT NULL,
    origin TEXT NOT NULL,
    date TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS movements_date_idx ON movements (date DESC);
`

// PostgresStore persists the cash box ledger in PostgreSQL. Every mutation
// locks the singleton cash box row so the balance check and the adjustment
// execute as one serialized unit.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// EnsureInitialized creates the cash box and its denomination rows on first
// access. Subsequent calls are no-ops thanks to the conflict targets.
func (s *PostgresStore) EnsureInitialized(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	boxID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO cash_boxes (id, total_balance) VALUES ($1, 0)
        ON CONFLICT (singleton) DO NOTHING`, boxID); err != nil {
		return err
	}
	if err := tx.QueryRow(ctx, `SELECT id FROM cash_boxes`).Scan(&boxID); err != nil {
		return err
	}
	for _, value := range RecognizedValues {
		if _, err := tx.Exec(ctx, `INSERT INTO denominations (id, cash_box_id, value, quantity)
            VALUES ($1, $2, $3, 0) ON CONFLICT (value) DO NOTHING`, uuid.New(), boxID, value); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Balance returns the current total balance of the box.
func (s *PostgresStore) Balance(ctx context.Context) (decimal.Decimal, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return decimal.Zero, err
	}
	var text string
	if err := s.db.QueryRow(ctx, `SELECT total_balance::text FROM cash_boxes`).Scan(&text); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(text)
}

// RecordManual applies a user-entered credit or debit inside one transaction.
func (s *PostgresStore) RecordManual(ctx context.Context, amount decimal.Decimal, typ MovementType) (RecordResult, error) {
	if err := validManualInput(amount, typ); err != nil {
		return RecordResult{}, err
	}
	if err := s.EnsureInitialized(ctx); err != nil {
		return RecordResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RecordResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	boxID, balance, err := lockCashBox(ctx, tx)
	if err != nil {
		return RecordResult{}, err
	}

	var newBalance decimal.Decimal
	if typ == TypeCredit {
		newBalance = balance.Add(amount)
	} else {
		if balance.LessThan(amount) {
			return RecordResult{}, ErrInsufficientFunds
		}
		newBalance = balance.Sub(amount)
	}

	movement := Movement{
		ID:     uuid.NewString(),
		Amount: amount,
		Type:   typ,
		Origin: OriginManual,
		Date:   time.Now().UTC(),
	}
	if err := applyMutation(ctx, tx, boxID, newBalance, movement); err != nil {
		return RecordResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RecordResult{}, err
	}
	return RecordResult{Movement: movement, NewBalance: newBalance}, nil
}

// RecordScan credits the box with one banknote and bumps the denomination count.
func (s *PostgresStore) RecordScan(ctx context.Context, value int) (RecordResult, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return RecordResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RecordResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	boxID, balance, err := lockCashBox(ctx, tx)
	if err != nil {
		return RecordResult{}, err
	}

	tag, err := tx.Exec(ctx, `UPDATE denominations SET quantity = quantity + 1 WHERE value = $1`, value)
	if err != nil {
		return RecordResult{}, err
	}
	if tag.RowsAffected() == 0 {
		return RecordResult{}, ErrUnknownDenomination
	}

	amount := decimal.NewFromInt(int64(value))
	newBalance := balance.Add(amount)

	movement := Movement{
		ID:     uuid.NewString(),
		Amount: amount,
		Type:   TypeCredit,
		Origin: OriginScan,
		Date:   time.Now().UTC(),
	}
	if err := applyMutation(ctx, tx, boxID, newBalance, movement); err != nil {
		return RecordResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RecordResult{}, err
	}
	return RecordResult{Movement: movement, NewBalance: newBalance}, nil
}

// Amend changes a movement's amount and applies the resulting balance delta.
func (s *PostgresStore) Amend(ctx context.Context, id string, newAmount decimal.Decimal) (Movement, error) {
	if !newAmount.IsPositive() {
		return Movement{}, ErrInvalidAmount
	}
	if _, err := uuid.Parse(id); err != nil {
		return Movement{}, ErrMovementNotFound
	}
	if err := s.EnsureInitialized(ctx); err != nil {
		return Movement{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Movement{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	boxID, balance, err := lockCashBox(ctx, tx)
	if err != nil {
		return Movement{}, err
	}

	movement := Movement{ID: id}
	var amountText string
	err = tx.QueryRow(ctx, `SELECT amount::text, movement_type, origin, date
        FROM movements WHERE id = $1 FOR UPDATE`, id).
		Scan(&amountText, &movement.Type, &movement.Origin, &movement.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, ErrMovementNotFound
		}
		return Movement{}, err
	}
	oldAmount, err := decimal.NewFromString(amountText)
	if err != nil {
		return Movement{}, err
	}

	// Delta derives from the stored type: amounts carry no sign themselves.
	var delta decimal.Decimal
	if movement.Type == TypeCredit {
		delta = newAmount.Sub(oldAmount)
	} else {
		delta = oldAmount.Sub(newAmount)
	}

	newBalance := balance.Add(delta)
	if newBalance.IsNegative() {
		return Movement{}, ErrNegativeBalance
	}

	movement.Amount = newAmount
	movement.Date = time.Now().UTC()

	if _, err := tx.Exec(ctx, `UPDATE cash_boxes SET total_balance = $1 WHERE id = $2`,
		newBalance.StringFixed(2), boxID); err != nil {
		return Movement{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE movements SET amount = $1, date = $2 WHERE id = $3`,
		newAmount.StringFixed(2), movement.Date, id); err != nil {
		return Movement{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Movement{}, err
	}
	return movement, nil
}

// Movements lists all movements, most recent date first.
func (s *PostgresStore) Movements(ctx context.Context) ([]Movement, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text, amount::text, movement_type, origin, date
        FROM movements ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		var amountText string
		if err := rows.Scan(&m.ID, &amountText, &m.Type, &m.Origin, &m.Date); err != nil {
			return nil, err
		}
		if m.Amount, err = decimal.NewFromString(amountText); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Denominations lists the tracked denominations ordered by ascending value.
func (s *PostgresStore) Denominations(ctx context.Context) ([]Denomination, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT value, quantity FROM denominations ORDER BY value ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var denominations []Denomination
	for rows.Next() {
		var d Denomination
		if err := rows.Scan(&d.Value, &d.Quantity); err != nil {
			return nil, err
		}
		denominations = append(denominations, d)
	}
	return denominations, rows.Err()
}

// lockCashBox acquires the row lock serializing all ledger mutations and
// returns the box id with the balance observed under that lock.
func lockCashBox(ctx context.Context, tx pgx.Tx) (uuid.UUID, decimal.Decimal, error) {
	var id uuid.UUID
	var text string
	if err := tx.QueryRow(ctx, `SELECT id, total_balance::text FROM cash_boxes FOR UPDATE`).Scan(&id, &text); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, decimal.Zero, fmt.Errorf("cash box not initialized")
		}
		return uuid.Nil, decimal.Zero, err
	}
	balance, err := decimal.NewFromString(text)
	if err != nil {
		return uuid.Nil, decimal.Zero, err
	}
	return id, balance, nil
}

func applyMutation(ctx context.Context, tx pgx.Tx, boxID uuid.UUID, newBalance decimal.Decimal, m Movement) error {
	if _, err := tx.Exec(ctx, `UPDATE cash_boxes SET total_balance = $1 WHERE id = $2`,
		newBalance.StringFixed(2), boxID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `INSERT INTO movements (id, cash_box_id, amount, movement_type, origin, date)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, boxID, m.Amount.StringFixed(2), string(m.Type), string(m.Origin), m.Date)
	return err
}
