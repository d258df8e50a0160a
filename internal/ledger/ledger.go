package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount occurs when a movement amount is zero, negative or unparsable.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidType indicates a movement type outside the recognized set.
	ErrInvalidType = errors.New("invalid movement type")

	// ErrInsufficientFunds occurs when a debit exceeds the cash box balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownDenomination indicates a scanned value that is not a tracked banknote.
	ErrUnknownDenomination = errors.New("unknown denomination")

	// ErrNegativeBalance indicates an amendment whose delta would drive the balance below zero.
	ErrNegativeBalance = errors.New("amendment would result in negative balance")

	// ErrMovementNotFound indicates the requested movement id does not exist.
	ErrMovementNotFound = errors.New("movement not found")
)

// MovementType distinguishes balance-increasing from balance-decreasing
// movements. The stored values are the wire vocabulary the clients speak.
type MovementType string

const (
	// TypeCredit increases the balance ("ingreso" on the wire).
	TypeCredit MovementType = "ingreso"
	// TypeDebit decreases the balance ("gasto" on the wire).
	TypeDebit MovementType = "gasto"
)

// Origin records which input channel produced a movement.
type Origin string

const (
	// OriginManual marks a movement entered directly by a user.
	OriginManual Origin = "manual"
	// OriginScan marks a movement created from a recognized banknote ("escaneo" on the wire).
	OriginScan Origin = "escaneo"
)

// RecognizedValues is the fixed set of banknote face values the box tracks.
var RecognizedValues = []int{10, 20, 50, 100, 200, 500, 1000, 2000}

// Movement is the audit record of one balance-affecting event. Only the
// amount (and with it the date) may change after creation.
type Movement struct {
	ID     string
	Amount decimal.Decimal
	Type   MovementType
	Origin Origin
	Date   time.Time
}

// Delta returns the signed contribution of the movement to the balance.
func (m Movement) Delta() decimal.Decimal {
	if m.Type == TypeDebit {
		return m.Amount.Neg()
	}
	return m.Amount
}

// Denomination holds the running count of notes of one face value.
type Denomination struct {
	Value    int
	Quantity int
}

// RecordResult captures the outcome of a mutation together with the balance
// observed inside the same transaction.
type RecordResult struct {
	Movement   Movement
	NewBalance decimal.Decimal
}

// Store defines the contract implemented by cash box ledger backends
// (e.g. Postgres). Mutating operations execute their balance check and
// adjustment as a single atomic unit.
type Store interface {
	// EnsureInitialized lazily creates the singleton cash box and one row per
	// recognized denomination. Safe to call on every read path.
	EnsureInitialized(ctx context.Context) error

	// Balance returns the current total balance of the box.
	Balance(ctx context.Context) (decimal.Decimal, error)

	// RecordManual applies a user-entered credit or debit.
	RecordManual(ctx context.Context, amount decimal.Decimal, typ MovementType) (RecordResult, error)

	// RecordScan credits the box with one banknote of the given face value
	// and increments the matching denomination count.
	RecordScan(ctx context.Context, value int) (RecordResult, error)

	// Amend changes the amount of an existing movement, adjusting the balance
	// by the delta. Type and origin never change.
	Amend(ctx context.Context, id string, newAmount decimal.Decimal) (Movement, error)

	// Movements lists all movements, most recent date first.
	Movements(ctx context.Context) ([]Movement, error)

	// Denominations lists the tracked denominations ordered by ascending value.
	Denominations(ctx context.Context) ([]Denomination, error)
}

func validManualInput(amount decimal.Decimal, typ MovementType) error {
	if typ != TypeCredit && typ != TypeDebit {
		return ErrInvalidType
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
