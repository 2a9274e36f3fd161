package domain

import "time"

// Plan is a purchasable entitlement: a validity window, a daily captcha
// quota, and a per-captcha payout. Immutable from the client's perspective.
type Plan struct {
	ID                 string    `json:"_id"`
	Name               string    `json:"name"`
	Price              float64   `json:"price"`
	ValidityDays       int       `json:"validityDays"`
	CaptchaLimit       int       `json:"captchaLimit"`
	EarningsPerCaptcha float64   `json:"earningsPerCaptcha"`
	Description        string    `json:"description,omitempty"`
	IsDemo             bool      `json:"isDemo,omitempty"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
}

// Free reports whether the plan is activated without payment. The server
// marks demo plans explicitly; a zero price is treated the same way so a
// misconfigured catalog entry never reaches the payment gateway.
func (p Plan) Free() bool {
	return p.IsDemo || p.Price <= 0
}

// DailyPotential is the maximum amount the plan can earn in one day.
func (p Plan) DailyPotential() float64 {
	return float64(p.CaptchaLimit) * p.EarningsPerCaptcha
}
