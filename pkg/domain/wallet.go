package domain

import "time"

// Transaction types.
const (
	TxnCredit = "credit"
	TxnDebit  = "debit"
)

// Wallet is a read-only snapshot of the user's balance and lifetime totals.
type Wallet struct {
	Balance        float64 `json:"balance"`
	TotalEarned    float64 `json:"totalEarned"`
	TotalWithdrawn float64 `json:"totalWithdrawn"`
}

// Transaction is one ledger entry.
type Transaction struct {
	ID          string    `json:"_id"`
	Type        string    `json:"type"` // "credit" or "debit"
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EarningsWindows holds client-side aggregations over recent credits.
// They are presentation sums only; the wallet remains the source of truth.
type EarningsWindows struct {
	Today float64
	Week  float64
	Month float64
}

// AggregateEarnings sums credit transactions into today / last-7-days /
// calendar-month windows relative to now.
func AggregateEarnings(txns []Transaction, now time.Time) EarningsWindows {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var w EarningsWindows
	for _, t := range txns {
		if t.Type != TxnCredit {
			continue
		}
		if !t.CreatedAt.Before(dayStart) {
			w.Today += t.Amount
		}
		if !t.CreatedAt.Before(weekStart) {
			w.Week += t.Amount
		}
		if !t.CreatedAt.Before(monthStart) {
			w.Month += t.Amount
		}
	}
	return w
}
