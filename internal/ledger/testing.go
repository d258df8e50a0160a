package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets the balance directly when using the
// in-memory store, bypassing movement bookkeeping.
func SeedBalance(s Store, balance decimal.Decimal) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.ensureLocked()
		mem.balance = balance
	}
}
