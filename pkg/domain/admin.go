package domain

import "time"

// PlatformStats is the admin overview snapshot.
type PlatformStats struct {
	TotalUsers         int     `json:"totalUsers"`
	ActivePlans        int     `json:"activePlans"`
	TotalRevenue       float64 `json:"totalRevenue"`
	PendingWithdrawals int     `json:"pendingWithdrawals"`
	TotalSolved        int     `json:"totalCaptchasSolved"`
	TotalPaidOut       float64 `json:"totalPaidOut"`
}

// Purchase is one plan sale as shown in the admin recent-purchases feed.
type Purchase struct {
	ID        string    `json:"_id"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail,omitempty"`
	PlanName  string    `json:"planName"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlanStat is per-plan sales aggregation for the admin reports tab.
type PlanStat struct {
	PlanID      string  `json:"planId"`
	PlanName    string  `json:"planName"`
	ActiveUsers int     `json:"activeUsers"`
	TotalSales  int     `json:"totalSales"`
	Revenue     float64 `json:"revenue"`
}
