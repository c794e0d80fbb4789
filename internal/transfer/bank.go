package transfer

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"EpochVault/internal/storage"
)

const (
	// balancePrefix keys balances as bal:<owner>\x00<asset>.
	balancePrefix = "bal:"
	// supplyPrefix keys total supply per asset as sup:<asset>.
	supplyPrefix = "sup:"
)

// Bank is a pebble-backed Collaborator.
// Apply stages every op against a working set and commits the touched
// balances in one batch, so a failing op leaves every balance untouched.
type Bank struct {
	db        *storage.Storage
	mu        sync.Mutex // mu serializes Apply, Stage and Fund
	custodian Custodian
}

// NewBank creates a bank storing balances in db.
func NewBank(db *storage.Storage) *Bank {
	return &Bank{db: db}
}

// SetCustodian installs the custodian consulted for custodial owners and
// mint authorities. Without one, no owner is custodial and nothing can mint.
func (b *Bank) SetCustodian(c Custodian) {
	b.mu.Lock()
	b.custodian = c
	b.mu.Unlock()
}

// Balance returns the balance of acct, zero if it was never credited.
func (b *Bank) Balance(_ context.Context, acct Account) (uint64, error) {
	if err := acct.validate(); err != nil {
		return 0, err
	}

	return b.readU64(balanceKey(acct))
}

// Supply returns the total amount of asset minted through Fund or Mint and
// not burned.
func (b *Bank) Supply(asset string) (uint64, error) {
	return b.readU64(supplyKey(asset))
}

// Apply executes ops atomically.
func (b *Bank) Apply(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ws, err := b.prepare(ops)
	if err != nil {
		return err
	}

	return ws.commit()
}

// Stage checks ops like Apply but writes the resulting balances into batch
// instead of committing them. batch must come from the bank's store. On
// success the bank stays locked until release is called, which the caller
// does once batch is committed or dropped.
func (b *Bank) Stage(ctx context.Context, batch *storage.Batch, ops ...Op) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !b.db.Owns(batch) {
		return nil, ErrForeignBatch
	}

	b.mu.Lock()

	ws, err := b.prepare(ops)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}

	ws.stage(batch)

	var once sync.Once
	return func() { once.Do(b.mu.Unlock) }, nil
}

// prepare authorizes and applies ops on a fresh working set. b.mu is held.
func (b *Bank) prepare(ops []Op) (*workingSet, error) {
	ws := newWorkingSet(b)

	for i, op := range ops {
		if err := b.authorize(op); err != nil {
			return nil, fmt.Errorf("op %d (%s):\n%w", i, op.Kind, err)
		}

		if err := ws.apply(op); err != nil {
			return nil, fmt.Errorf("op %d (%s):\n%w", i, op.Kind, err)
		}
	}

	return ws, nil
}

// Fund credits amount to acct outside of any mint authority. Assets with a
// mint authority cannot be funded this way.
func (b *Bank) Fund(ctx context.Context, acct Account, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := acct.validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.custodian != nil {
		if _, ok := b.custodian.MintAuthority(acct.Asset); ok {
			return fmt.Errorf("%w: asset %s has a mint authority", ErrUnauthorized, acct.Asset)
		}
	}

	ws := newWorkingSet(b)
	if err := ws.credit(acct, amount); err != nil {
		return err
	}

	if err := ws.addSupply(acct.Asset, amount); err != nil {
		return err
	}

	return ws.commit()
}

// authorize checks that op.Signer may perform op.
func (b *Bank) authorize(op Op) error {
	switch op.Kind {
	case OpTransfer, OpBurn:
		return b.authorizeOwner(op.Signer, op.From.Owner)

	case OpMint:
		if b.custodian == nil {
			return fmt.Errorf("%w: no mint authority for %s", ErrUnauthorized, op.To.Asset)
		}

		authority, ok := b.custodian.MintAuthority(op.To.Asset)
		if !ok {
			return fmt.Errorf("%w: no mint authority for %s", ErrUnauthorized, op.To.Asset)
		}

		return b.authorizeOwner(op.Signer, authority)

	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidOp, op.Kind)
	}
}

// authorizeOwner checks that signer acts as owner.
func (b *Bank) authorizeOwner(signer Signer, owner string) error {
	if signer.Identity != owner {
		return fmt.Errorf("%w: %s cannot act for %s", ErrUnauthorized, signer.Identity, owner)
	}

	if b.custodian != nil && b.custodian.Manages(owner) &&
		!b.custodian.VerifyCapability(owner, signer.Capability) {
		return fmt.Errorf("%w: bad capability for %s", ErrUnauthorized, owner)
	}

	return nil
}

// readU64 reads a little-endian counter, zero when absent.
func (b *Bank) readU64(key []byte) (uint64, error) {
	data, err := b.db.Get(key)
	if err != nil {
		return 0, fmt.Errorf("read %q:\n%w", key, err)
	}

	if data == nil {
		return 0, nil
	}

	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt counter %q: %d bytes", key, len(data))
	}

	return binary.LittleEndian.Uint64(data), nil
}

// workingSet holds balances modified by an in-flight Apply.
type workingSet struct {
	bank  *Bank
	vals  map[string]uint64
	order []string
}

func newWorkingSet(b *Bank) *workingSet {
	return &workingSet{bank: b, vals: make(map[string]uint64)}
}

// get returns the staged value of key, loading it on first use.
func (w *workingSet) get(key []byte) (uint64, error) {
	if v, ok := w.vals[string(key)]; ok {
		return v, nil
	}

	v, err := w.bank.readU64(key)
	if err != nil {
		return 0, err
	}

	w.vals[string(key)] = v
	w.order = append(w.order, string(key))

	return v, nil
}

func (w *workingSet) apply(op Op) error {
	switch op.Kind {
	case OpTransfer:
		if err := op.From.validate(); err != nil {
			return err
		}
		if err := op.To.validate(); err != nil {
			return err
		}
		if op.From.Asset != op.To.Asset {
			return fmt.Errorf("%w: asset mismatch %s != %s", ErrInvalidOp, op.From.Asset, op.To.Asset)
		}
		if err := w.debit(op.From, op.Amount); err != nil {
			return err
		}
		return w.credit(op.To, op.Amount)

	case OpMint:
		if err := op.To.validate(); err != nil {
			return err
		}
		if err := w.credit(op.To, op.Amount); err != nil {
			return err
		}
		return w.addSupply(op.To.Asset, op.Amount)

	case OpBurn:
		if err := op.From.validate(); err != nil {
			return err
		}
		if err := w.debit(op.From, op.Amount); err != nil {
			return err
		}
		return w.subSupply(op.From.Asset, op.Amount)
	}

	return fmt.Errorf("%w: kind %d", ErrInvalidOp, op.Kind)
}

func (w *workingSet) credit(acct Account, amount uint64) error {
	key := balanceKey(acct)

	balance, err := w.get(key)
	if err != nil {
		return err
	}

	// Overflow check: balance + amount must not wrap
	next := balance + amount
	if next < balance {
		return fmt.Errorf("%w: %s balance=%d + amount=%d", ErrOverflow, acct, balance, amount)
	}

	w.vals[string(key)] = next

	return nil
}

func (w *workingSet) debit(acct Account, amount uint64) error {
	key := balanceKey(acct)

	balance, err := w.get(key)
	if err != nil {
		return err
	}

	if balance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, acct, balance, amount)
	}

	w.vals[string(key)] = balance - amount

	return nil
}

func (w *workingSet) addSupply(asset string, amount uint64) error {
	key := supplyKey(asset)

	supply, err := w.get(key)
	if err != nil {
		return err
	}

	next := supply + amount
	if next < supply {
		return fmt.Errorf("%w: supply of %s", ErrOverflow, asset)
	}

	w.vals[string(key)] = next

	return nil
}

func (w *workingSet) subSupply(asset string, amount uint64) error {
	key := supplyKey(asset)

	supply, err := w.get(key)
	if err != nil {
		return err
	}

	if supply < amount {
		return fmt.Errorf("%w: supply of %s below burn %d", ErrInsufficientFunds, asset, amount)
	}

	w.vals[string(key)] = supply - amount

	return nil
}

// stage buffers every touched counter into batch.
func (w *workingSet) stage(batch *storage.Batch) {
	for _, key := range w.order {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], w.vals[key])
		batch.Set([]byte(key), buf[:])
	}
}

// commit writes every touched counter in one batch.
func (w *workingSet) commit() error {
	batch := w.bank.db.NewBatch()
	w.stage(batch)

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit balances:\n%w", err)
	}

	return nil
}

func balanceKey(acct Account) []byte {
	key := make([]byte, 0, len(balancePrefix)+len(acct.Owner)+1+len(acct.Asset))
	key = append(key, balancePrefix...)
	key = append(key, acct.Owner...)
	key = append(key, 0)
	key = append(key, acct.Asset...)

	return key
}

func supplyKey(asset string) []byte {
	return append([]byte(supplyPrefix), asset...)
}
