package ledger

import (
	"errors"
	"testing"
)

func TestEvents_Paging(t *testing.T) {
	f := newFixture(t)
	f.deposit(testAlice, 1_000_000)
	f.deposit(testBob, 500_000)

	if _, err := f.ledger.RequestWithdrawal(f.ctx, testAlice, testAsset, 10); err != nil {
		t.Fatal(err)
	}

	all, err := f.ledger.Events(testAsset, 0, 100)
	if err != nil {
		t.Fatal(err)
	}

	wantTypes := []EventType{EventVaultCreated, EventDeposit, EventDeposit, EventWithdrawalRequested}
	if len(all) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(all), len(wantTypes))
	}

	for i, e := range all {
		if e.Type != wantTypes[i] || e.Seq != uint64(i+1) {
			t.Errorf("event %d = %s seq %d", i, e.Type, e.Seq)
		}
	}

	if all[2].Actor != testBob || all[2].Shares != 500_500 || all[2].TotalAssets != 1_500_000 {
		t.Errorf("second deposit event = %+v", all[2])
	}

	page, err := f.ledger.Events(testAsset, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(page) != 2 || page[0].Seq != 2 || page[1].Seq != 3 {
		t.Errorf("page = %+v", page)
	}

	tail, err := f.ledger.Events(testAsset, 10, 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(tail) != 0 {
		t.Errorf("tail = %+v", tail)
	}

	if _, err := f.ledger.Events(testAsset, 0, 0); !errors.Is(err, ErrInvalidPageLimit) {
		t.Errorf("limit 0: err = %v", err)
	}
}

func TestEvents_RejectedOperationsLeaveNoEvent(t *testing.T) {
	f := newFixture(t)

	_, _ = f.ledger.Deposit(f.ctx, testAlice, testAsset, 0)
	_, _ = f.ledger.Deposit(f.ctx, testAlice, testAsset, 5)

	events, err := f.ledger.Events(testAsset, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(events) != 1 {
		t.Errorf("got %d events, want only vault_created", len(events))
	}
}

func TestPreviews(t *testing.T) {
	f := newFixture(t)

	q, err := f.ledger.PreviewDeposit(testAsset, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}

	if q.Shares != 1_000_000 {
		t.Errorf("first preview = %d", q.Shares)
	}

	f.deposit(testAlice, 1_000_000)

	q, err = f.ledger.PreviewDeposit(testAsset, 500_000)
	if err != nil {
		t.Fatal(err)
	}

	if q.Shares != 500_500 {
		t.Errorf("preview = %d, want 500500", q.Shares)
	}

	if got := f.deposit(testBob, 500_000); got != q.Shares {
		t.Errorf("deposit minted %d, preview said %d", got, q.Shares)
	}

	r, err := f.ledger.PreviewRedeem(testAsset, 100_000)
	if err != nil {
		t.Fatal(err)
	}

	// floor(100000 * 1500000 / 1501500)
	if r.Amount != 99_900 {
		t.Errorf("redeem preview = %d", r.Amount)
	}

	price, err := f.ledger.SharePrice(testAsset)
	if err != nil {
		t.Fatal(err)
	}

	// floor(1e6 * 1500000 / 1501500)
	if price != 999_000 {
		t.Errorf("share price = %d", price)
	}
}

func TestVaults_Listing(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ledger.CreateVault(f.ctx, testAuthority, VaultParams{AssetID: "AAPLx", PremiumAsset: testPremium}); err != nil {
		t.Fatal(err)
	}

	vs, err := f.ledger.Vaults()
	if err != nil {
		t.Fatal(err)
	}

	if len(vs) != 2 || vs[0].AssetID != "AAPLx" || vs[1].AssetID != testAsset {
		t.Errorf("vaults = %+v", vs)
	}
}
