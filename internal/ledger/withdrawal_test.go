package ledger

import (
	"testing"
	"time"
)

func TestWithdrawal_EpochGatingScenario(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)

	req, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 100_000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if req.RequestEpoch != 1 || req.Processed {
		t.Errorf("request = %+v", req)
	}

	v := f.vault()
	if v.PendingWithdrawals != 100_000 {
		t.Errorf("pending = %d", v.PendingWithdrawals)
	}

	if got := f.balance(v.Owner(), v.ShareAsset()); got != 100_000 {
		t.Errorf("escrow = %d", got)
	}

	f.rejects(ErrEpochNotSettled, func() error {
		_, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0)
		return err
	})

	f.roll(0)

	r, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// floor(100000 * 1000000 / 1001000)
	if r.Amount != 99_900 {
		t.Errorf("amount = %d, want 99900", r.Amount)
	}

	v = f.vault()
	if v.TotalAssets != 1_000_000-99_900 || v.TotalShares != 900_000 || v.PendingWithdrawals != 0 {
		t.Errorf("vault after = %+v", v)
	}

	if got := f.balance(testAlice, testAsset); got != 99_900 {
		t.Errorf("alice collateral = %d", got)
	}

	if got := f.balance(v.Owner(), v.ShareAsset()); got != 0 {
		t.Errorf("escrow = %d after burn", got)
	}
}

func TestWithdrawal_ProcessTwice(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 100_000); err != nil {
		t.Fatal(err)
	}

	f.roll(0)

	if _, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0); err != nil {
		t.Fatal(err)
	}

	paid := f.balance(testAlice, testAsset)

	f.rejects(ErrAlreadyProcessed, func() error {
		_, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0)
		return err
	})

	if got := f.balance(testAlice, testAsset); got != paid {
		t.Errorf("second process paid out: %d -> %d", paid, got)
	}

	req, err := f.ledger.Withdrawal(testAsset, testAlice, 1)
	if err != nil {
		t.Fatal(err)
	}

	if !req.Processed || req.PaidAssets != paid {
		t.Errorf("stored request = %+v", req)
	}
}

func TestWithdrawal_PremiumClaimCapped(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)
	f.fund(testDesk, testPremium, 1_000)

	if _, err := f.ledger.RecordNotionalExposure(f.ctx, testAuthority, testAsset, 400_000, 1_000); err != nil {
		t.Fatal(err)
	}

	if err := f.ledger.CollectPremium(f.ctx, testAuthority, testDesk, testAsset, 1_000); err != nil {
		t.Fatal(err)
	}

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 1_000_000); err != nil {
		t.Fatal(err)
	}

	// Credits 2000 to the pool while only 1000 is held.
	f.roll(2_000)

	r, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// owed = floor(1000000 * 2000 / 1001000)
	if r.PremiumOwed != 1_998 {
		t.Errorf("owed = %d, want 1998", r.PremiumOwed)
	}

	if r.Premium != 1_000 {
		t.Errorf("paid premium = %d, want capped 1000", r.Premium)
	}

	// floor(1000000 * 1000000 / 1001000)
	if r.Amount != 999_000 {
		t.Errorf("amount = %d, want 999000", r.Amount)
	}

	v := f.vault()
	if v.PremiumBalance != 1_000 {
		t.Errorf("pool = %d, want 1000", v.PremiumBalance)
	}

	if v.TotalShares != 0 || v.TotalAssets != 1_000 {
		t.Errorf("vault after = %+v", v)
	}

	if got := f.balance(testAlice, testPremium); got != 1_000 {
		t.Errorf("alice premium = %d", got)
	}
}

func TestWithdrawal_PremiumProRata(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)
	f.fund(testDesk, testPremium, 10_000)

	if _, err := f.ledger.RecordNotionalExposure(f.ctx, testAuthority, testAsset, 400_000, 0); err != nil {
		t.Fatal(err)
	}

	if err := f.ledger.CollectPremium(f.ctx, testAuthority, testDesk, testAsset, 10_000); err != nil {
		t.Fatal(err)
	}

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 100_000); err != nil {
		t.Fatal(err)
	}

	f.roll(10_000)

	r, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	// floor(100000 * 10000 / 1001000)
	if r.Premium != 999 || r.PremiumOwed != 999 {
		t.Errorf("premium = %d owed %d, want 999", r.Premium, r.PremiumOwed)
	}

	if v := f.vault(); v.PremiumBalance != 10_000-999 {
		t.Errorf("pool = %d", v.PremiumBalance)
	}
}

func TestWithdrawal_Slippage(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 100_000); err != nil {
		t.Fatal(err)
	}

	f.roll(0)

	f.rejects(ErrSlippageExceeded, func() error {
		_, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 99_901)
		return err
	})

	// Retrying with a lower floor succeeds.
	if _, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 99_900); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestWithdrawal_RequestRejects(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000)

	f.rejects(ErrZeroAmount, func() error {
		_, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 0)
		return err
	})

	f.rejects(ErrInsufficientShares, func() error {
		_, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 1_001)
		return err
	})

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 10); err != nil {
		t.Fatal(err)
	}

	f.rejects(ErrRequestExists, func() error {
		_, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 10)
		return err
	})

	// A new epoch accepts a new request.
	f.roll(0)
	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 10); err != nil {
		t.Fatalf("request in next epoch: %v", err)
	}

	pending, err := f.ledger.Withdrawals(testAsset, true)
	if err != nil {
		t.Fatal(err)
	}

	if len(pending) != 2 || pending[0].RequestEpoch != 1 || pending[1].RequestEpoch != 2 {
		t.Errorf("pending = %+v", pending)
	}
}

func TestWithdrawal_Paused(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 100); err != nil {
		t.Fatal(err)
	}

	f.roll(0)

	if err := f.ledger.SetPaused(f.ctx, testAuthority, testAsset, true); err != nil {
		t.Fatal(err)
	}

	f.rejects(ErrVaultPaused, func() error {
		_, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 100)
		return err
	})

	f.rejects(ErrVaultPaused, func() error {
		_, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0)
		return err
	})

	if err := f.ledger.SetPaused(f.ctx, testAuthority, testAsset, false); err != nil {
		t.Fatal(err)
	}

	if _, err := f.ledger.ProcessWithdrawal(f.ctx, testAlice, testAsset, 1, 0); err != nil {
		t.Fatalf("process after unpause: %v", err)
	}
}

func TestWithdrawal_NotFound(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000)

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 10); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(testDuration * time.Second)

	// Bob cannot address Alice's request: his id derives to a different record.
	f.rejects(ErrRequestNotFound, func() error {
		_, err := f.ledger.ProcessWithdrawal(f.ctx, testBob, testAsset, 1, 0)
		return err
	})
}
