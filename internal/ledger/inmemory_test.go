package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// balanceMatchesMovements checks the summation identity: the balance must
// equal the signed sum of all movement amounts.
func balanceMatchesMovements(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	movements, err := s.Movements(ctx)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}

	sum := decimal.Zero
	for _, m := range movements {
		sum = sum.Add(m.Delta())
	}
	if !balance.Equal(sum) {
		t.Fatalf("balance %s does not match movement sum %s", balance, sum)
	}
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if err := s.EnsureInitialized(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if err := s.EnsureInitialized(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}

	denominations, err := s.Denominations(ctx)
	if err != nil {
		t.Fatalf("denominations: %v", err)
	}
	if len(denominations) != len(RecognizedValues) {
		t.Fatalf("expected %d denominations, got %d", len(RecognizedValues), len(denominations))
	}
	for i, d := range denominations {
		if d.Value != RecognizedValues[i] {
			t.Fatalf("expected value %d at position %d, got %d", RecognizedValues[i], i, d.Value)
		}
		if d.Quantity != 0 {
			t.Fatalf("fresh denomination %d has quantity %d", d.Value, d.Quantity)
		}
	}

	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("fresh box balance = %s, want 0", balance)
	}
}

func TestRecordManualCredit(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	res, err := s.RecordManual(ctx, decimal.NewFromInt(100), TypeCredit)
	if err != nil {
		t.Fatalf("record credit: %v", err)
	}
	if !res.NewBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", res.NewBalance)
	}
	if res.Movement.Origin != OriginManual || res.Movement.Type != TypeCredit {
		t.Fatalf("unexpected movement %+v", res.Movement)
	}

	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", balance)
	}
	balanceMatchesMovements(t, s)
}

func TestRecordManualDebit(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.RecordManual(ctx, decimal.NewFromInt(100), TypeCredit); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	res, err := s.RecordManual(ctx, decimal.NewFromInt(50), TypeDebit)
	if err != nil {
		t.Fatalf("record debit: %v", err)
	}
	if !res.NewBalance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance 50, got %s", res.NewBalance)
	}

	// A debit over the remaining balance fails and leaves it untouched.
	if _, err := s.RecordManual(ctx, decimal.NewFromInt(100), TypeDebit); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance changed on failed debit: %s", balance)
	}
	balanceMatchesMovements(t, s)
}

func TestRecordManualRejectsInvalidInput(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.RecordManual(ctx, decimal.Zero, TypeCredit); err != ErrInvalidAmount {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := s.RecordManual(ctx, decimal.NewFromInt(-5), TypeDebit); err != ErrInvalidAmount {
		t.Fatalf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := s.RecordManual(ctx, decimal.NewFromInt(5), MovementType("propina")); err != ErrInvalidType {
		t.Fatalf("bad type: expected ErrInvalidType, got %v", err)
	}
}

func TestRecordManualDebitJustOverBalance(t *testing.T) {
	s := NewMemory()
	SeedBalance(s, decimal.RequireFromString("100.00"))

	if _, err := s.RecordManual(context.Background(), decimal.RequireFromString("100.01"), TypeDebit); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestRecordScan(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	res, err := s.RecordScan(ctx, 500)
	if err != nil {
		t.Fatalf("record scan: %v", err)
	}
	if !res.NewBalance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected balance 500, got %s", res.NewBalance)
	}
	if res.Movement.Type != TypeCredit || res.Movement.Origin != OriginScan {
		t.Fatalf("unexpected movement %+v", res.Movement)
	}
	if !res.Movement.Amount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected amount 500, got %s", res.Movement.Amount)
	}

	denominations, err := s.Denominations(ctx)
	if err != nil {
		t.Fatalf("denominations: %v", err)
	}
	for _, d := range denominations {
		want := 0
		if d.Value == 500 {
			want = 1
		}
		if d.Quantity != want {
			t.Fatalf("denomination %d quantity = %d, want %d", d.Value, d.Quantity, want)
		}
	}
	balanceMatchesMovements(t, s)
}

func TestRecordScanUnknownDenomination(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.RecordScan(ctx, 999); err != ErrUnknownDenomination {
		t.Fatalf("expected ErrUnknownDenomination, got %v", err)
	}

	// Failed scans leave no trace.
	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("balance changed on failed scan: %s", balance)
	}
	movements, err := s.Movements(ctx)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 0 {
		t.Fatalf("expected no movements, got %d", len(movements))
	}
}

func TestAmendAdjustsBalanceByDelta(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.RecordManual(ctx, decimal.NewFromInt(150), TypeCredit); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := s.RecordManual(ctx, decimal.NewFromInt(50), TypeCredit)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	amended, err := s.Amend(ctx, res.Movement.ID, decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if !amended.Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected amended amount 30, got %s", amended.Amount)
	}
	if amended.Type != TypeCredit || amended.Origin != OriginManual {
		t.Fatalf("amendment changed type or origin: %+v", amended)
	}

	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected balance 180, got %s", balance)
	}
	balanceMatchesMovements(t, s)
}

func TestAmendDebitDelta(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.RecordManual(ctx, decimal.NewFromInt(200), TypeCredit); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := s.RecordManual(ctx, decimal.NewFromInt(40), TypeDebit)
	if err != nil {
		t.Fatalf("seed debit: %v", err)
	}

	// Raising a debit from 40 to 90 lowers the balance by 50.
	if _, err := s.Amend(ctx, res.Movement.ID, decimal.NewFromInt(90)); err != nil {
		t.Fatalf("amend: %v", err)
	}
	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("expected balance 110, got %s", balance)
	}
	balanceMatchesMovements(t, s)
}

func TestAmendErrors(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.Amend(ctx, "missing", decimal.NewFromInt(10)); err != ErrMovementNotFound {
		t.Fatalf("expected ErrMovementNotFound, got %v", err)
	}

	res, err := s.RecordManual(ctx, decimal.NewFromInt(100), TypeCredit)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Amend(ctx, res.Movement.ID, decimal.Zero); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	// Shrinking the only credit below an existing debit would go negative.
	if _, err := s.RecordManual(ctx, decimal.NewFromInt(80), TypeDebit); err != nil {
		t.Fatalf("seed debit: %v", err)
	}
	if _, err := s.Amend(ctx, res.Movement.ID, decimal.NewFromInt(10)); err != ErrNegativeBalance {
		t.Fatalf("expected ErrNegativeBalance, got %v", err)
	}
	balanceMatchesMovements(t, s)
}

func TestMovementsNewestFirst(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.RecordManual(ctx, decimal.NewFromInt(10), TypeCredit)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.RecordScan(ctx, 100); err != nil {
		t.Fatalf("seed scan: %v", err)
	}

	// Amending refreshes the date, moving the movement to the front.
	if _, err := s.Amend(ctx, first.Movement.ID, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("amend: %v", err)
	}

	movements, err := s.Movements(ctx)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	if movements[0].ID != first.Movement.ID {
		t.Fatalf("expected amended movement first, got %s", movements[0].ID)
	}
	for i := 1; i < len(movements); i++ {
		if movements[i].Date.After(movements[i-1].Date) {
			t.Fatalf("movements not ordered newest first")
		}
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.RecordManual(ctx, decimal.NewFromInt(1000), TypeCredit); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const workers = 10
	amount := decimal.NewFromInt(150)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RecordManual(ctx, amount, TypeDebit); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 1000 / 150 leaves room for exactly 6 debits regardless of interleaving.
	if succeeded != 6 {
		t.Fatalf("expected 6 successful debits, got %d", succeeded)
	}
	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", balance)
	}
	balanceMatchesMovements(t, s)
}

func TestConcurrentScansCountEveryNote(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RecordScan(ctx, 200); err != nil {
				t.Errorf("scan failed: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(200 * workers)) {
		t.Fatalf("expected balance %d, got %s", 200*workers, balance)
	}
	denominations, err := s.Denominations(ctx)
	if err != nil {
		t.Fatalf("denominations: %v", err)
	}
	for _, d := range denominations {
		if d.Value == 200 && d.Quantity != workers {
			t.Fatalf("expected %d notes of 200, got %d", workers, d.Quantity)
		}
	}
	balanceMatchesMovements(t, s)
}
