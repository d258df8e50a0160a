package cashflow

import (
	"encoding/json"
	"time"

	"github.com/cajaflow/cajaflow/internal/ledger"
)

type addMovementRequest struct {
	Amount json.Number `json:"amount"`
	Type   string      `json:"type"`
}

type addFromScanRequest struct {
	Amount json.Number `json:"amount"`
}

type amendMovementRequest struct {
	Amount json.Number `json:"amount"`
}

// BalanceResponse carries the total balance of the box.
type BalanceResponse struct {
	TotalBalance float64 `json:"total_balance"`
}

// MutationResponse is returned by the movement-creating endpoints.
type MutationResponse struct {
	Message    string  `json:"message"`
	NewBalance float64 `json:"new_balance"`
}

// MovementView is the wire projection of a single movement.
type MovementView struct {
	ID     string    `json:"id"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Type   string    `json:"type"`
	Origin string    `json:"origin"`
}

// DenominationView is the wire projection of a denomination count.
type DenominationView struct {
	Value    int `json:"value"`
	Quantity int `json:"quantity"`
}

func toMovementView(m ledger.Movement) MovementView {
	return MovementView{
		ID:     m.ID,
		Amount: m.Amount.InexactFloat64(),
		Date:   m.Date,
		Type:   string(m.Type),
		Origin: string(m.Origin),
	}
}
