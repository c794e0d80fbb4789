package transfer

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"EpochVault/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockCustodian treats owners prefixed "vault:" as custodial, accepting
// a single fixed capability, and lets "vault:a" mint "shares/a".
type mockCustodian struct {
	capability Capability
}

func (m *mockCustodian) Manages(owner string) bool {
	return strings.HasPrefix(owner, "vault:")
}

func (m *mockCustodian) VerifyCapability(_ string, c Capability) bool {
	return c == m.capability
}

func (m *mockCustodian) MintAuthority(asset string) (string, bool) {
	if asset == "shares/a" {
		return "vault:a", true
	}

	return "", false
}

func newTestBank(t *testing.T) (*Bank, *mockCustodian) {
	t.Helper()

	db, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := &mockCustodian{capability: Capability{7}}
	b := NewBank(db)
	b.SetCustodian(c)

	return b, c
}

func mustBalance(t *testing.T, b *Bank, acct Account) uint64 {
	t.Helper()

	v, err := b.Balance(context.Background(), acct)
	if err != nil {
		t.Fatalf("balance %s: %v", acct, err)
	}

	return v
}

func TestBank_FundAndTransfer(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()

	alice := Account{Owner: "alice", Asset: "a"}
	bob := Account{Owner: "bob", Asset: "a"}

	if err := b.Fund(ctx, alice, 100); err != nil {
		t.Fatalf("fund: %v", err)
	}

	err := b.Apply(ctx, Transfer(Signer{Identity: "alice"}, alice, bob, 40))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := mustBalance(t, b, alice); got != 60 {
		t.Errorf("alice = %d, want 60", got)
	}

	if got := mustBalance(t, b, bob); got != 40 {
		t.Errorf("bob = %d, want 40", got)
	}
}

func TestBank_WrongSigner(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()

	alice := Account{Owner: "alice", Asset: "a"}
	if err := b.Fund(ctx, alice, 100); err != nil {
		t.Fatal(err)
	}

	err := b.Apply(ctx, Transfer(Signer{Identity: "mallory"}, alice, Account{Owner: "mallory", Asset: "a"}, 1))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestBank_AllOrNothing(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()

	alice := Account{Owner: "alice", Asset: "a"}
	bob := Account{Owner: "bob", Asset: "a"}

	if err := b.Fund(ctx, alice, 100); err != nil {
		t.Fatal(err)
	}

	// Second op overdraws, so the first must not land either.
	err := b.Apply(ctx,
		Transfer(Signer{Identity: "alice"}, alice, bob, 60),
		Transfer(Signer{Identity: "alice"}, alice, bob, 60),
	)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	if got := mustBalance(t, b, alice); got != 100 {
		t.Errorf("alice = %d, want 100", got)
	}

	if got := mustBalance(t, b, bob); got != 0 {
		t.Errorf("bob = %d, want 0", got)
	}
}

func TestBank_CustodialCapability(t *testing.T) {
	b, c := newTestBank(t)
	ctx := context.Background()

	vault := Account{Owner: "vault:a", Asset: "a"}
	user := Account{Owner: "alice", Asset: "a"}

	if err := b.Fund(ctx, vault, 10); err != nil {
		t.Fatal(err)
	}

	err := b.Apply(ctx, Transfer(Signer{Identity: "vault:a"}, vault, user, 5))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("missing capability: err = %v", err)
	}

	signer := Signer{Identity: "vault:a", Capability: c.capability}
	if err := b.Apply(ctx, Transfer(signer, vault, user, 5)); err != nil {
		t.Fatalf("with capability: %v", err)
	}

	if got := mustBalance(t, b, user); got != 5 {
		t.Errorf("user = %d, want 5", got)
	}
}

func TestBank_MintBurnSupply(t *testing.T) {
	b, c := newTestBank(t)
	ctx := context.Background()

	authority := Signer{Identity: "vault:a", Capability: c.capability}
	holder := Account{Owner: "alice", Asset: "shares/a"}

	if err := b.Apply(ctx, Mint(authority, holder, 50)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := b.Apply(ctx, Burn(Signer{Identity: "alice"}, holder, 20)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	supply, err := b.Supply("shares/a")
	if err != nil {
		t.Fatal(err)
	}

	if supply != 30 {
		t.Errorf("supply = %d, want 30", supply)
	}

	if got := mustBalance(t, b, holder); got != 30 {
		t.Errorf("holder = %d, want 30", got)
	}
}

func TestBank_MintWithoutAuthority(t *testing.T) {
	b, _ := newTestBank(t)

	err := b.Apply(context.Background(), Mint(Signer{Identity: "alice"}, Account{Owner: "alice", Asset: "a"}, 1))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestBank_FundRejectsMintedAsset(t *testing.T) {
	b, _ := newTestBank(t)

	err := b.Fund(context.Background(), Account{Owner: "alice", Asset: "shares/a"}, 1)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestBank_CreditOverflow(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()

	alice := Account{Owner: "alice", Asset: "a"}
	if err := b.Fund(ctx, alice, math.MaxUint64); err != nil {
		t.Fatal(err)
	}

	err := b.Fund(ctx, Account{Owner: "bob", Asset: "a"}, 1)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("supply overflow: err = %v, want ErrOverflow", err)
	}
}

func TestBank_InvalidAccount(t *testing.T) {
	b, _ := newTestBank(t)

	if _, err := b.Balance(context.Background(), Account{Owner: "a\x00b", Asset: "x"}); !errors.Is(err, ErrInvalidOp) {
		t.Errorf("NUL owner: err = %v", err)
	}

	err := b.Apply(context.Background(), Transfer(Signer{Identity: "alice"},
		Account{Owner: "alice", Asset: "a"}, Account{Owner: "bob", Asset: "b"}, 0))
	if !errors.Is(err, ErrInvalidOp) {
		t.Errorf("asset mismatch: err = %v", err)
	}
}

func TestBank_CanceledContext(t *testing.T) {
	b, _ := newTestBank(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Apply(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBank_StageCommitsWithCallerBatch(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()

	alice := Account{Owner: "alice", Asset: "a"}
	bob := Account{Owner: "bob", Asset: "a"}

	if err := b.Fund(ctx, alice, 100); err != nil {
		t.Fatal(err)
	}

	batch := b.db.NewBatch()
	batch.Set([]byte("other:key"), []byte("v"))

	release, err := b.Stage(ctx, batch, Transfer(Signer{Identity: "alice"}, alice, bob, 30))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	// Nothing lands before the caller commits.
	if got := mustBalance(t, b, bob); got != 0 {
		t.Errorf("bob before commit = %d, want 0", got)
	}

	if err := batch.Commit(); err != nil {
		t.Fatal(err)
	}
	release()
	release()

	if got := mustBalance(t, b, alice); got != 70 {
		t.Errorf("alice = %d, want 70", got)
	}

	if got := mustBalance(t, b, bob); got != 30 {
		t.Errorf("bob = %d, want 30", got)
	}

	if ok, err := b.db.Has([]byte("other:key")); err != nil || !ok {
		t.Errorf("caller write missing: ok=%v err=%v", ok, err)
	}

	// The bank is unlocked again.
	if err := b.Apply(ctx, Transfer(Signer{Identity: "bob"}, bob, alice, 5)); err != nil {
		t.Fatalf("apply after release: %v", err)
	}
}

func TestBank_StageDroppedBatch(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()

	alice := Account{Owner: "alice", Asset: "a"}
	if err := b.Fund(ctx, alice, 100); err != nil {
		t.Fatal(err)
	}

	batch := b.db.NewBatch()
	release, err := b.Stage(ctx, batch, Transfer(Signer{Identity: "alice"}, alice, Account{Owner: "bob", Asset: "a"}, 100))
	if err != nil {
		t.Fatal(err)
	}
	release()

	if got := mustBalance(t, b, alice); got != 100 {
		t.Errorf("alice = %d, want 100", got)
	}
}

func TestBank_StageRejects(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()

	alice := Account{Owner: "alice", Asset: "a"}
	bob := Account{Owner: "bob", Asset: "a"}

	if err := b.Fund(ctx, alice, 10); err != nil {
		t.Fatal(err)
	}

	other, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	if _, err := b.Stage(ctx, other.NewBatch(), Transfer(Signer{Identity: "alice"}, alice, bob, 1)); !errors.Is(err, ErrForeignBatch) {
		t.Errorf("foreign batch: err = %v, want ErrForeignBatch", err)
	}

	batch := b.db.NewBatch()
	if _, err := b.Stage(ctx, batch, Transfer(Signer{Identity: "alice"}, alice, bob, 11)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("overdraw: err = %v, want ErrInsufficientFunds", err)
	}

	if batch.Len() != 0 {
		t.Errorf("rejected stage wrote %d ops", batch.Len())
	}

	// A rejected stage leaves the bank unlocked.
	if err := b.Apply(ctx, Transfer(Signer{Identity: "alice"}, alice, bob, 1)); err != nil {
		t.Fatalf("apply after rejected stage: %v", err)
	}
}
