package cashflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/cajaflow/cajaflow/internal/ledger"
)

// Service exposes the cash box operations as transport-independent
// request/response contracts, validating input before delegating to the store.
type Service struct {
	store ledger.Store
}

// NewService builds a cashflow service atop the given ledger store.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// Balance returns the current total balance of the box.
func (s *Service) Balance(ctx context.Context) (decimal.Decimal, error) {
	return s.store.Balance(ctx)
}

// AddMovement records a manual credit or debit. Raw inputs arrive as wire
// strings and are validated here: type must be "ingreso" or "gasto", amount a
// positive decimal.
func (s *Service) AddMovement(ctx context.Context, rawAmount, rawType string) (ledger.RecordResult, error) {
	typ := ledger.MovementType(rawType)
	if typ != ledger.TypeCredit && typ != ledger.TypeDebit {
		return ledger.RecordResult{}, fmt.Errorf("%w: %q", ledger.ErrInvalidType, rawType)
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return ledger.RecordResult{}, err
	}
	return s.store.RecordManual(ctx, amount, typ)
}

// AddFromScan records one scanned banknote of the given face value.
func (s *Service) AddFromScan(ctx context.Context, rawValue string) (ledger.RecordResult, error) {
	value, err := strconv.Atoi(rawValue)
	if err != nil {
		return ledger.RecordResult{}, fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, rawValue)
	}
	return s.store.RecordScan(ctx, value)
}

// AmendMovement changes the amount of an existing movement.
func (s *Service) AmendMovement(ctx context.Context, id, rawAmount string) (ledger.Movement, error) {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return ledger.Movement{}, err
	}
	return s.store.Amend(ctx, id, amount)
}

// Movements lists all movements, most recent first.
func (s *Service) Movements(ctx context.Context) ([]ledger.Movement, error) {
	return s.store.Movements(ctx)
}

// Denominations lists the tracked banknote counts by ascending value.
func (s *Service) Denominations(ctx context.Context) ([]ledger.Denomination, error) {
	return s.store.Denominations(ctx)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ledger.ErrInvalidAmount, amount)
	}
	return amount, nil
}
