package entitlement

import (
	"strings"
	"testing"
	"time"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestPlanTerms(t *testing.T) {
	tests := []struct {
		plan     Plan
		cap      int
		days     int
		fee      string
		rankOver Plan
	}{
		{Basic, 1, 90, "99", ""},
		{Standard, 3, 180, "199", Basic},
		{Premium, 10, 365, "499", Standard},
	}
	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			if tt.plan.Cap() != tt.cap {
				t.Errorf("cap = %d, want %d", tt.plan.Cap(), tt.cap)
			}
			if tt.plan.Duration() != time.Duration(tt.days)*24*time.Hour {
				t.Errorf("duration = %v, want %d days", tt.plan.Duration(), tt.days)
			}
			if tt.plan.Fee().String() != tt.fee {
				t.Errorf("fee = %s, want %s", tt.plan.Fee(), tt.fee)
			}
			if tt.rankOver != "" && tt.plan.Rank() <= tt.rankOver.Rank() {
				t.Errorf("%s should outrank %s", tt.plan, tt.rankOver)
			}
		})
	}
}

func TestParsePlan(t *testing.T) {
	if p, err := ParsePlan(" Premium "); err != nil || p != Premium {
		t.Fatalf("ParsePlan premium = %q, %v", p, err)
	}
	if _, err := ParsePlan("gold"); err == nil {
		t.Fatal("expected error for unknown plan")
	}
}

func TestIsActiveAndDaysRemaining(t *testing.T) {
	tests := []struct {
		name   string
		l      Listing
		active bool
		days   int
	}{
		{"unpaid", Listing{Plan: Basic, ExpiresAt: at(48 * time.Hour)}, false, 2},
		{"paid no expiry", Listing{Plan: Basic, IsPaid: true}, false, 0},
		{"paid future", Listing{Plan: Basic, IsPaid: true, ExpiresAt: at(90*24*time.Hour + time.Hour)}, true, 90},
		{"expired now", Listing{Plan: Basic, IsPaid: true, ExpiresAt: at(0)}, false, 0},
		{"expired past", Listing{Plan: Basic, IsPaid: true, ExpiresAt: at(-time.Hour)}, false, 0},
		{"partial day", Listing{Plan: Basic, IsPaid: true, ExpiresAt: at(23 * time.Hour)}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsActive(tt.l, now); got != tt.active {
				t.Errorf("IsActive = %v, want %v", got, tt.active)
			}
			if got := DaysRemaining(tt.l.ExpiresAt, now); got != tt.days {
				t.Errorf("DaysRemaining = %d, want %d", got, tt.days)
			}
		})
	}
}

func TestExpiryFrom(t *testing.T) {
	got := ExpiryFrom(Basic, now)
	if want := now.AddDate(0, 0, 90); !got.Equal(want) {
		t.Fatalf("ExpiryFrom = %v, want %v", got, want)
	}
}

func TestCanActivate(t *testing.T) {
	activeBasic := Listing{Plan: Basic, IsPaid: true, ExpiresAt: at(24 * time.Hour)}
	activeStandard := Listing{Plan: Standard, IsPaid: true, ExpiresAt: at(24 * time.Hour)}
	activePremium := Listing{Plan: Premium, IsPaid: true, ExpiresAt: at(24 * time.Hour)}
	expiredPremium := Listing{Plan: Premium, IsPaid: true, ExpiresAt: at(-24 * time.Hour)}
	unpaid := Listing{Plan: Premium}

	tests := []struct {
		name      string
		listings  []Listing
		requested Plan
		allowed   bool
		cap       int
		active    int
	}{
		{"first listing basic", nil, Basic, true, 1, 0},
		{"first listing premium", nil, Premium, true, 10, 0},
		{"basic full", []Listing{activeBasic}, Basic, false, 1, 1},
		{"basic full requesting premium", []Listing{activeBasic}, Premium, false, 1, 1},
		{"standard has room", []Listing{activeStandard, activeBasic}, Basic, true, 3, 2},
		{"standard full", []Listing{activeStandard, activeBasic, activeBasic}, Standard, false, 3, 3},
		{"premium subsumes", []Listing{activePremium, activeBasic, activeBasic, activeStandard}, Basic, true, 10, 4},
		{"expired and unpaid ignored", []Listing{expiredPremium, unpaid, unpaid}, Basic, true, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanActivate(tt.listings, tt.requested, now)
			if d.Allowed != tt.allowed || d.Cap != tt.cap || d.ActiveCount != tt.active {
				t.Fatalf("CanActivate = %+v, want allowed=%v cap=%d active=%d", d, tt.allowed, tt.cap, tt.active)
			}
			if !d.Allowed && d.Reason == "" {
				t.Fatal("denied decision must carry a reason")
			}
		})
	}
}

func TestCanActivateBasicMessage(t *testing.T) {
	d := CanActivate([]Listing{{Plan: Basic, IsPaid: true, ExpiresAt: at(time.Hour)}}, Basic, now)
	if !strings.Contains(d.Reason, "Basic plan allows only 1 active property") {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
}
