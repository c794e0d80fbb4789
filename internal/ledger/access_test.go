package ledger

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestWhitelist_AddRemove(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < whitelistCapacity; i++ {
		if err := f.ledger.AddToWhitelist(f.ctx, testAuthority, testAsset, fmt.Sprintf("mm%d", i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	f.rejects(ErrWhitelistFull, func() error {
		return f.ledger.AddToWhitelist(f.ctx, testAuthority, testAsset, "mm10")
	})

	f.rejects(ErrAlreadyListed, func() error {
		return f.ledger.AddToWhitelist(f.ctx, testAuthority, testAsset, "mm3")
	})

	if err := f.ledger.RemoveFromWhitelist(f.ctx, testAuthority, testAsset, "mm3"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	f.rejects(ErrNotListed, func() error {
		return f.ledger.RemoveFromWhitelist(f.ctx, testAuthority, testAsset, "mm3")
	})

	w, err := f.ledger.Whitelist(testAsset)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"mm0", "mm1", "mm2", "mm4", "mm5", "mm6", "mm7", "mm8", "mm9"}
	if !reflect.DeepEqual(w.Members, want) {
		t.Errorf("members = %v, want %v", w.Members, want)
	}

	f.rejects(ErrUnauthorized, func() error {
		return f.ledger.AddToWhitelist(f.ctx, testAlice, testAsset, "mm3")
	})
}

func TestParamChange_Timelock(t *testing.T) {
	f := newFixture(t)

	change, err := f.ledger.QueueParamChange(f.ctx, testAuthority, testAsset, 60, 8000)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	if change.UnlockTime != f.clock.Now().Unix()+timelockDelay {
		t.Errorf("unlock = %d", change.UnlockTime)
	}

	f.clock.Advance((timelockDelay - 1) * time.Second)
	f.rejects(ErrTimelockNotExpired, func() error {
		return f.ledger.ExecuteParamChange(f.ctx, testAuthority, testAsset)
	})

	f.clock.Advance(time.Second)
	if err := f.ledger.ExecuteParamChange(f.ctx, testAuthority, testAsset); err != nil {
		t.Fatalf("execute: %v", err)
	}

	v := f.vault()
	if v.MinEpochDuration != 60 || v.UtilizationCapBps != 8000 {
		t.Errorf("params not applied: %+v", v)
	}

	if v.HasPendingChange() || v.PendingMinEpochDuration != 0 || v.PendingUtilizationCap != 0 {
		t.Errorf("pending not cleared: %+v", v)
	}

	f.rejects(ErrNoPendingChange, func() error {
		return f.ledger.ExecuteParamChange(f.ctx, testAuthority, testAsset)
	})
}

func TestParamChange_Cancel(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ledger.QueueParamChange(f.ctx, testAuthority, testAsset, 60, 8000); err != nil {
		t.Fatal(err)
	}

	if err := f.ledger.CancelParamChange(f.ctx, testAuthority, testAsset); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Cancel is unconditional.
	if err := f.ledger.CancelParamChange(f.ctx, testAuthority, testAsset); err != nil {
		t.Fatalf("second cancel: %v", err)
	}

	f.clock.Advance(timelockDelay * time.Second)
	f.rejects(ErrNoPendingChange, func() error {
		return f.ledger.ExecuteParamChange(f.ctx, testAuthority, testAsset)
	})

	if v := f.vault(); v.UtilizationCapBps != 5000 || v.MinEpochDuration != testDuration {
		t.Errorf("params changed: %+v", v)
	}
}

func TestParamChange_Rejects(t *testing.T) {
	f := newFixture(t)

	f.rejects(ErrInvalidCap, func() error {
		_, err := f.ledger.QueueParamChange(f.ctx, testAuthority, testAsset, 60, 10_001)
		return err
	})

	f.rejects(ErrInvalidDuration, func() error {
		_, err := f.ledger.QueueParamChange(f.ctx, testAuthority, testAsset, -1, 100)
		return err
	})

	f.rejects(ErrUnauthorized, func() error {
		_, err := f.ledger.QueueParamChange(f.ctx, testAlice, testAsset, 60, 100)
		return err
	})

	f.rejects(ErrDeprecated, func() error {
		return f.ledger.SetMinEpochDuration(f.ctx, testAuthority, testAsset, 0)
	})

	if KindOf(ErrDeprecated) != KindTimelock {
		t.Errorf("deprecated kind = %s", KindOf(ErrDeprecated))
	}
}

func TestPause_Unauthorized(t *testing.T) {
	f := newFixture(t)

	f.rejects(ErrUnauthorized, func() error {
		return f.ledger.SetPaused(f.ctx, testAlice, testAsset, true)
	})
}

func TestReconcilePremium(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)
	f.fund(testDesk, testPremium, 1_000)

	if _, err := f.ledger.RecordNotionalExposure(f.ctx, testAuthority, testAsset, 400_000, 1_000); err != nil {
		t.Fatal(err)
	}

	if err := f.ledger.CollectPremium(f.ctx, testAuthority, testDesk, testAsset, 1_000); err != nil {
		t.Fatal(err)
	}

	f.roll(2_000)

	s, err := f.ledger.Solvency(f.ctx, testAsset)
	if err != nil {
		t.Fatal(err)
	}

	if s.PremiumShortfall != 1_000 || s.Solvent() {
		t.Errorf("solvency before = %+v", s)
	}

	f.rejects(ErrUnauthorized, func() error {
		_, _, err := f.ledger.ReconcilePremium(f.ctx, testAlice, testAsset)
		return err
	})

	before, after, err := f.ledger.ReconcilePremium(f.ctx, testAuthority, testAsset)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if before != 2_000 || after != 1_000 {
		t.Errorf("reconcile = %d -> %d", before, after)
	}

	s, err = f.ledger.Solvency(f.ctx, testAsset)
	if err != nil {
		t.Fatal(err)
	}

	if !s.Solvent() || s.HeldAssets != 1_000_000 {
		t.Errorf("solvency after = %+v", s)
	}
}
