package domain

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

// User represents an account as reported by the platform API.
// The client never computes any of these fields; they are display state.
type User struct {
	ID            string     `json:"_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	IsAdmin       bool       `json:"isAdmin"`
	Plan          *Plan      `json:"plan"`
	PlanExpiry    *time.Time `json:"planExpiry,omitempty"`
	SolvedTotal   int        `json:"totalCaptchasSolved"`
	TotalEarnings float64    `json:"totalEarnings"`

	// PlanKnown records whether the "plan" key was present in the payload at
	// all. A missing key is not the same thing as an explicit null: the plan
	// gate defers to the server when the field is absent, but redirects when
	// the server said "no plan".
	PlanKnown bool `json:"-"`
}

// UnmarshalJSON decodes a user while tracking presence of the plan field.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*u = User(a)
	_, u.PlanKnown = keys["plan"]
	return nil
}

// HasActivePlan reports whether the user holds a plan reference.
// Callers that care about the unknown/absent case must check PlanKnown first.
func (u *User) HasActivePlan() bool {
	return u != nil && u.Plan != nil
}

// PlanDaysLeft returns whole days until plan expiry, never negative.
// Zero when no expiry is known.
func (u *User) PlanDaysLeft(now time.Time) int {
	if u == nil || u.PlanExpiry == nil {
		return 0
	}
	d := u.PlanExpiry.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}
