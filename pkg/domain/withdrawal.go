package domain

import "time"

// Withdrawal statuses. Created pending, transitioned only by an admin.
const (
	WithdrawalPending   = "pending"
	WithdrawalApproved  = "approved"
	WithdrawalRejected  = "rejected"
	WithdrawalCompleted = "completed"
)

// MinWithdrawal is the platform's minimum payout amount in rupees.
const MinWithdrawal = 200

// BankDetails is the payout destination attached to a withdrawal request.
type BankDetails struct {
	AccountHolder string `json:"accountHolder"`
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName"`
	IFSCCode      string `json:"ifscCode"`
	UPIID         string `json:"upiId,omitempty"`
}

// Withdrawal is a user-initiated payout request.
type Withdrawal struct {
	ID          string      `json:"_id"`
	UserID      string      `json:"userId,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	Amount      float64     `json:"amount"`
	BankDetails BankDetails `json:"bankDetails"`
	Status      string      `json:"status"`
	Remarks     string      `json:"remarks,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt,omitempty"`
}

// StatusChange pairs a withdrawal with the status it moved away from.
type StatusChange struct {
	Withdrawal Withdrawal
	From       string
}

// DiffWithdrawals returns the requests in next whose status differs from the
// matching entry in prev. Requests with no prior entry are not reported; the
// first poll after creation is not a transition.
func DiffWithdrawals(prev, next []Withdrawal) []StatusChange {
	if len(prev) == 0 || len(next) == 0 {
		return nil
	}
	byID := make(map[string]string, len(prev))
	for _, w := range prev {
		byID[w.ID] = w.Status
	}
	var changes []StatusChange
	for _, w := range next {
		old, ok := byID[w.ID]
		if ok && old != w.Status {
			changes = append(changes, StatusChange{Withdrawal: w, From: old})
		}
	}
	return changes
}
