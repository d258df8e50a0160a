package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu          sync.RWMutex
	initialized bool
	balance     decimal.Decimal
	movements   []Movement
	quantities  map[int]int
}

// NewMemory creates a concurrency-safe in-memory store used by unit tests
// and by dev mode when no database is configured.
func NewMemory() Store {
	return &memoryStore{quantities: make(map[int]int)}
}

func (s *memoryStore) EnsureInitialized(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	return nil
}

func (s *memoryStore) ensureLocked() {
	if s.initialized {
		return
	}
	s.balance = decimal.Zero
	for _, value := range RecognizedValues {
		if _, exists := s.quantities[value]; !exists {
			s.quantities[value] = 0
		}
	}
	s.initialized = true
}

func (s *memoryStore) Balance(_ context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	return s.balance, nil
}

func (s *memoryStore) RecordManual(_ context.Context, amount decimal.Decimal, typ MovementType) (RecordResult, error) {
	if err := validManualInput(amount, typ); err != nil {
		return RecordResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	if typ == TypeDebit {
		if s.balance.LessThan(amount) {
			return RecordResult{}, ErrInsufficientFunds
		}
		s.balance = s.balance.Sub(amount)
	} else {
		s.balance = s.balance.Add(amount)
	}

	movement := Movement{
		ID:     uuid.NewString(),
		Amount: amount,
		Type:   typ,
		Origin: OriginManual,
		Date:   time.Now().UTC(),
	}
	s.movements = append(s.movements, movement)
	return RecordResult{Movement: movement, NewBalance: s.balance}, nil
}

func (s *memoryStore) RecordScan(_ context.Context, value int) (RecordResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	if _, recognized := s.quantities[value]; !recognized {
		return RecordResult{}, ErrUnknownDenomination
	}

	amount := decimal.NewFromInt(int64(value))
	s.quantities[value]++
	s.balance = s.balance.Add(amount)

	movement := Movement{
		ID:     uuid.NewString(),
		Amount: amount,
		Type:   TypeCredit,
		Origin: OriginScan,
		Date:   time.Now().UTC(),
	}
	s.movements = append(s.movements, movement)
	return RecordResult{Movement: movement, NewBalance: s.balance}, nil
}

func (s *memoryStore) Amend(_ context.Context, id string, newAmount decimal.Decimal) (Movement, error) {
	if !newAmount.IsPositive() {
		return Movement{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	for i := range s.movements {
		if s.movements[i].ID != id {
			continue
		}

		old := s.movements[i]
		var delta decimal.Decimal
		if old.Type == TypeCredit {
			delta = newAmount.Sub(old.Amount)
		} else {
			delta = old.Amount.Sub(newAmount)
		}

		newBalance := s.balance.Add(delta)
		if newBalance.IsNegative() {
			return Movement{}, ErrNegativeBalance
		}

		s.balance = newBalance
		s.movements[i].Amount = newAmount
		s.movements[i].Date = time.Now().UTC()
		return s.movements[i], nil
	}
	return Movement{}, ErrMovementNotFound
}

func (s *memoryStore) Movements(_ context.Context) ([]Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movements := make([]Movement, len(s.movements))
	copy(movements, s.movements)
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Date.After(movements[j].Date)
	})
	return movements, nil
}

func (s *memoryStore) Denominations(_ context.Context) ([]Denomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	denominations := make([]Denomination, 0, len(RecognizedValues))
	for _, value := range RecognizedValues {
		denominations = append(denominations, Denomination{Value: value, Quantity: s.quantities[value]})
	}
	return denominations, nil
}
