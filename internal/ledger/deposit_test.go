package ledger

import (
	"errors"
	"testing"
)

func TestDeposit_FirstDepositSetsOffset(t *testing.T) {
	f := newFixture(t)

	shares := f.deposit(testAlice, 1_000_000)
	if shares != 1_000_000 {
		t.Errorf("shares = %d, want 1000000", shares)
	}

	v := f.vault()
	if v.VirtualOffset != 1000 {
		t.Errorf("offset = %d, want 1000", v.VirtualOffset)
	}

	if v.Epoch != 1 {
		t.Errorf("epoch = %d, want 1", v.Epoch)
	}

	if v.TotalAssets != 1_000_000 || v.TotalShares != 1_000_000 {
		t.Errorf("totals = %d/%d", v.TotalAssets, v.TotalShares)
	}

	if got := f.balance(testAlice, v.ShareAsset()); got != 1_000_000 {
		t.Errorf("alice shares = %d", got)
	}

	if got := f.balance(v.Owner(), testAsset); got != 1_000_000 {
		t.Errorf("vault collateral = %d", got)
	}
}

func TestDeposit_SecondDepositScenario(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)

	// floor(500000 * 1001000 / 1000000)
	shares := f.deposit(testBob, 500_000)
	if shares != 500_500 {
		t.Errorf("shares = %d, want 500500", shares)
	}

	v := f.vault()
	if v.TotalAssets != 1_500_000 {
		t.Errorf("total assets = %d, want 1500000", v.TotalAssets)
	}

	if v.TotalShares != 1_500_500 {
		t.Errorf("total shares = %d, want 1500500", v.TotalShares)
	}

	if v.VirtualOffset != 1000 {
		t.Errorf("offset changed to %d", v.VirtualOffset)
	}
}

func TestDeposit_SharesPerUnitNeverIncrease(t *testing.T) {
	f := newFixture(t)

	const amount = 10_000
	f.deposit(testAlice, amount)

	// From the second deposit on the price is fixed by the offset.
	prev := f.deposit(testBob, amount)
	if prev != amount+1000 {
		t.Fatalf("second deposit minted %d, want %d", prev, amount+1000)
	}

	for i := 0; i < 5; i++ {
		shares := f.deposit(testBob, amount)
		if shares > prev {
			t.Fatalf("deposit %d minted %d shares, previous %d", i, shares, prev)
		}
		prev = shares
	}
}

func TestDeposit_Rejects(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)

	f.rejects(ErrZeroAmount, func() error {
		_, err := f.ledger.Deposit(f.ctx, testBob, testAsset, 0)
		return err
	})

	// No balance to move.
	f.rejects(ErrTransferFailed, func() error {
		_, err := f.ledger.Deposit(f.ctx, testBob, testAsset, 10)
		return err
	})

	if err := f.ledger.SetPaused(f.ctx, testAuthority, testAsset, true); err != nil {
		t.Fatal(err)
	}

	f.fund(testBob, testAsset, 10)
	f.rejects(ErrVaultPaused, func() error {
		_, err := f.ledger.Deposit(f.ctx, testBob, testAsset, 10)
		return err
	})

	if got := f.balance(testBob, testAsset); got != 10 {
		t.Errorf("bob balance = %d after rejected deposit", got)
	}
}

func TestDeposit_ZeroShares(t *testing.T) {
	// A donated-up price: 1 unit buys floor(1 * 2000 / 10000000) shares.
	v := &Vault{TotalAssets: 10_000_000, TotalShares: 1000, VirtualOffset: 1000, Epoch: 1}

	if _, _, err := sharesForDeposit(v, 1); !errors.Is(err, ErrZeroShares) {
		t.Errorf("err = %v, want ErrZeroShares", err)
	}
}

func TestDeposit_EmptiedVaultRejects(t *testing.T) {
	v := &Vault{VirtualOffset: 1000, Epoch: 3}

	if _, _, err := sharesForDeposit(v, 100); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("err = %v, want ErrDivisionByZero", err)
	}
}

func TestDeposit_ConservationAcrossWithdrawals(t *testing.T) {
	f := newFixture(t)

	var deposited, withdrawn uint64

	amounts := []uint64{1_000_000, 250_000, 3, 777_777, 42}
	for i, amt := range amounts {
		user := testAlice
		if i%2 == 1 {
			user = testBob
		}
		f.deposit(user, amt)
		deposited += amt
	}

	for _, user := range []string{testAlice, testBob} {
		shares := f.balance(user, f.vault().ShareAsset())
		half := shares / 2

		if _, err := f.ledger.RequestWithdrawal(f.ctx, user, testAsset, half); err != nil {
			t.Fatalf("request %s: %v", user, err)
		}
	}

	epoch := f.vault().Epoch
	f.roll(0)

	for _, user := range []string{testAlice, testBob} {
		r, err := f.ledger.ProcessWithdrawal(f.ctx, user, testAsset, epoch, 0)
		if err != nil {
			t.Fatalf("process %s: %v", user, err)
		}
		withdrawn += r.Amount
	}

	v := f.vault()
	if deposited-withdrawn != v.TotalAssets {
		t.Errorf("deposited %d - withdrawn %d != total assets %d", deposited, withdrawn, v.TotalAssets)
	}

	if held := f.balance(v.Owner(), testAsset); held != v.TotalAssets {
		t.Errorf("held %d != total assets %d", held, v.TotalAssets)
	}

	supply, err := f.bank.Supply(v.ShareAsset())
	if err != nil {
		t.Fatal(err)
	}

	if supply != v.TotalShares {
		t.Errorf("share supply %d != total shares %d", supply, v.TotalShares)
	}

	if v.PendingWithdrawals != 0 {
		t.Errorf("pending = %d", v.PendingWithdrawals)
	}
}
