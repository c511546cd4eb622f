package services

import (
	"context"
	"sync"
	"testing"

	"github.com/farellandr/homerental/internal/entitlement"
	"github.com/farellandr/homerental/internal/models"
)

func TestSweepReturnsExpiredListingsToPending(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.user(models.RoleOwner)
	now := f.clock.Now()

	expired := f.property(owner, createdAt(now.Add(-100*day)), available(entitlement.Basic, 90*day))
	live := f.property(owner, available(entitlement.Premium, 10*day))
	rented := f.property(owner, createdAt(now.Add(-100*day)), available(entitlement.Basic, 90*day), withStatus(models.StatusRented))

	n, err := f.svc.Sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d listings, want 1", n)
	}
	if got := f.reload(expired.ID); got.Status != models.StatusPendingApproval || !got.IsPaid {
		t.Fatalf("expired listing = %s paid=%v", got.Status, got.IsPaid)
	}
	if f.reload(live.ID).Status != models.StatusAvailable {
		t.Fatal("live listing swept")
	}
	if f.reload(rented.ID).Status != models.StatusRented {
		t.Fatal("rented listing swept")
	}

	if n, err := f.svc.Sweeper.Sweep(context.Background()); err != nil || n != 0 {
		t.Fatalf("second sweep = %d, %v", n, err)
	}
}

func TestSweepAtExactExpiry(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.user(models.RoleOwner)
	property := f.property(owner, available(entitlement.Basic, day))

	f.clock.Advance(day)
	if n, _ := f.svc.Sweeper.Sweep(context.Background()); n != 1 {
		t.Fatalf("listing expiring now should be swept, got %d", n)
	}
	if f.reload(property.ID).Status != models.StatusPendingApproval {
		t.Fatal("status not reset")
	}
}

func TestConcurrentSweepsAreSafe(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.user(models.RoleOwner)
	now := f.clock.Now()
	for i := 0; i < 3; i++ {
		f.property(owner, createdAt(now.Add(-400*day)), available(entitlement.Premium, 365*day))
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := f.svc.Sweeper.Sweep(context.Background())
			if err != nil {
				t.Errorf("Sweep: %v", err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 3 {
		t.Fatalf("listings swept across runs = %d, want 3", total)
	}
	if n := f.count(&models.Property{}, "status = ?", models.StatusAvailable); n != 0 {
		t.Fatalf("%d listings still available", n)
	}
}
