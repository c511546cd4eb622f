// Package entitlement decides how many listings an owner may keep active and
// for how long a paid plan keeps a listing visible. It performs no I/O.
package entitlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Plan string

const (
	Basic    Plan = "basic"
	Standard Plan = "standard"
	Premium  Plan = "premium"
)

const day = 24 * time.Hour

type planTerms struct {
	label    string
	cap      int
	duration time.Duration
	fee      decimal.Decimal
	rank     int
}

var plans = map[Plan]planTerms{
	Basic:    {label: "Basic", cap: 1, duration: 90 * day, fee: decimal.NewFromInt(99), rank: 1},
	Standard: {label: "Standard", cap: 3, duration: 180 * day, fee: decimal.NewFromInt(199), rank: 2},
	Premium:  {label: "Premium", cap: 10, duration: 365 * day, fee: decimal.NewFromInt(499), rank: 3},
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

func Plans() []Plan {
	return []Plan{Basic, Standard, Premium}
}

func (p Plan) Valid() bool {
	_, ok := plans[p]
	return ok
}

func (p Plan) Label() string { return plans[p].label }

// Cap is the total number of active listings an owner holding this tier may have.
func (p Plan) Cap() int { return plans[p].cap }

func (p Plan) Duration() time.Duration { return plans[p].duration }

func (p Plan) Fee() decimal.Decimal { return plans[p].fee }

// Rank orders tiers; higher ranks subsume the caps of lower ones.
func (p Plan) Rank() int { return plans[p].rank }

// Listing is the slice of a property the engine needs.
type Listing struct {
	Plan      Plan
	IsPaid    bool
	ExpiresAt *time.Time
}

// IsActive reports whether the listing is paid and its plan has not expired,
// regardless of approval status.
func IsActive(l Listing, now time.Time) bool {
	return l.IsPaid && IsPlanActive(l.ExpiresAt, now)
}

func IsPlanActive(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.After(now)
}

// DaysRemaining is the number of whole days until expiry, never negative.
func DaysRemaining(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return 0
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / day)
}

// ExpiryFrom is the plan expiry for a payment confirmed at confirmedAt.
func ExpiryFrom(p Plan, confirmedAt time.Time) time.Time {
	return confirmedAt.Add(p.Duration())
}

type Decision struct {
	Allowed     bool
	Reason      string
	Tier        Plan
	Cap         int
	ActiveCount int
}

// CanActivate decides whether one more listing may become active. The cap is
// the one of the highest tier among the owner's active listings; when none is
// active the requested plan's own cap applies.
func CanActivate(listings []Listing, requested Plan, now time.Time) Decision {
	var tier Plan
	active := 0
	for _, l := range listings {
		if !IsActive(l, now) {
			continue
		}
		active++
		if l.Plan.Valid() && (tier == "" || l.Plan.Rank() > tier.Rank()) {
			tier = l.Plan
		}
	}
	if tier == "" {
		tier = requested
	}

	d := Decision{Tier: tier, Cap: tier.Cap(), ActiveCount: active}
	if active < d.Cap {
		d.Allowed = true
		return d
	}
	d.Reason = limitMessage(tier)
	return d
}

func limitMessage(tier Plan) string {
	noun := "properties"
	if tier.Cap() == 1 {
		noun = "property"
	}
	msg := fmt.Sprintf("%s plan allows only %d active %s.", tier.Label(), tier.Cap(), noun)
	switch tier {
	case Basic:
		return msg + " Upgrade to Standard or Premium to list more."
	case Standard:
		return msg + " Upgrade to Premium to list more."
	default:
		return msg + " Wait for a listing to expire before activating another."
	}
}
