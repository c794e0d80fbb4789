// Package ledger implements the share-based vault engine: deposits and share
// issuance, epoch-scoped exposure and premium accounting, the withdrawal
// queue, and authority-gated administration with a parameter timelock.
//
// Every operation runs under a per-vault lock. Preconditions are checked
// against a working copy of the vault. Collaborator transfers are staged into
// the same storage batch as the vault, whitelist, requests and events when
// the collaborator shares the ledger's store, and applied just ahead of it
// otherwise. A rejected operation never touches stored state.
package ledger

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"EpochVault/internal/logger"
	"EpochVault/internal/storage"
	"EpochVault/internal/transfer"
)

// Ledger owns every vault stored in db.
type Ledger struct {
	db     *storage.Storage      // db holds vault, request, whitelist and event records
	bank   transfer.Collaborator // bank moves collateral, premium and shares
	locks  *vaultLocks           // locks serializes operations per vault
	secret [32]byte              // secret keys the custodial capabilities
	now    func() time.Time      // now is the ledger clock
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithSecret sets the capability key. Without it a random key is drawn.
func WithSecret(secret [32]byte) Option {
	return func(l *Ledger) {
		l.secret = secret
	}
}

// New creates a ledger over db that moves funds through bank.
func New(db *storage.Storage, bank transfer.Collaborator, opts ...Option) *Ledger {
	l := &Ledger{
		db:    db,
		bank:  bank,
		locks: newVaultLocks(),
		now:   time.Now,
	}

	if _, err := rand.Read(l.secret[:]); err != nil {
		panic(fmt.Sprintf("read capability secret: %v", err))
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Manages reports whether owner is a vault custody identity.
func (l *Ledger) Manages(owner string) bool {
	return strings.HasPrefix(owner, vaultOwnerPrefix)
}

// VerifyCapability reports whether capability was issued for owner.
func (l *Ledger) VerifyCapability(owner string, capability transfer.Capability) bool {
	want := l.capability(owner)

	return subtle.ConstantTimeCompare(want[:], capability[:]) == 1
}

// MintAuthority returns the vault owner that mints asset when asset is the
// share asset of an existing vault.
func (l *Ledger) MintAuthority(asset string) (string, bool) {
	assetID, ok := strings.CutPrefix(asset, shareAssetPrefix)
	if !ok || !validAssetID(assetID) {
		return "", false
	}

	id := VaultID(assetID)

	exists, err := l.vaultExists(id)
	if err != nil || !exists {
		return "", false
	}

	return VaultOwner(id), true
}

// capability derives the keyed blake3 token for owner.
func (l *Ledger) capability(owner string) transfer.Capability {
	h, err := blake3.NewKeyed(l.secret[:])
	if err != nil {
		panic(fmt.Sprintf("keyed blake3: %v", err))
	}

	h.Write([]byte(owner))

	var c transfer.Capability
	copy(c[:], h.Sum(nil))

	return c
}

// vaultSigner returns the signer presenting the vault's capability.
func (l *Ledger) vaultSigner(v *Vault) transfer.Signer {
	owner := v.Owner()

	return transfer.Signer{Identity: owner, Capability: l.capability(owner)}
}

// txn accumulates the effects of one operation until commit.
type txn struct {
	ctx       context.Context
	l         *Ledger
	vault     *Vault // vault is a working copy
	now       int64
	list      *Whitelist
	listDirty bool
	requests  []*WithdrawalRequest
	indexKeys [][]byte
	ops       []transfer.Op
	events    []*Event
}

// whitelist loads the vault's whitelist into the transaction.
func (tx *txn) whitelist() (*Whitelist, error) {
	if tx.list != nil {
		return tx.list, nil
	}

	w, err := tx.l.loadWhitelist(tx.vault.ID())
	if err != nil {
		return nil, err
	}

	tx.list = w

	return w, nil
}

// move queues a collaborator op.
func (tx *txn) move(op transfer.Op) {
	tx.ops = append(tx.ops, op)
}

// putRequest queues a request write, indexing it when it is new.
func (tx *txn) putRequest(r *WithdrawalRequest, isNew bool) {
	tx.requests = append(tx.requests, r)
	if isNew {
		tx.indexKeys = append(tx.indexKeys, requestIndexKey(r.VaultID, r.RequestEpoch, r.ID))
	}
}

// emit queues an event. Epoch and totals are stamped at commit.
func (tx *txn) emit(typ EventType, actor string, e Event) {
	e.Type = typ
	e.Actor = actor
	tx.events = append(tx.events, &e)
}

// requireAuthority checks caller against the stored authority.
func (tx *txn) requireAuthority(caller string) error {
	if caller != tx.vault.Authority {
		return ErrUnauthorized
	}

	return nil
}

// update runs fn against a working copy of the vault for assetID and
// commits its effects when it returns nil.
func (l *Ledger) update(ctx context.Context, op, assetID string, fn func(tx *txn) error) error {
	if !validAssetID(assetID) {
		return ErrInvalidAssetID
	}

	id := VaultID(assetID)
	release := l.locks.lock(id)
	defer release()

	v, err := l.loadVault(id)
	if err != nil {
		return err
	}

	tx := &txn{ctx: ctx, l: l, vault: v, now: l.now().Unix()}

	if err := fn(tx); err != nil {
		logger.Debug("operation rejected", "op", op, "asset", assetID, "code", CodeOf(err), "err", err)
		return err
	}

	return l.commit(tx)
}

// commit applies queued transfers, then writes every record in one batch.
// transfer stages tx.ops into batch when the bank shares the ledger's store.
// Otherwise the ops are applied directly and release is nil.
func (l *Ledger) transfer(tx *txn, batch *storage.Batch) (release func(), err error) {
	if st, ok := l.bank.(transfer.Stager); ok {
		release, err := st.Stage(tx.ctx, batch, tx.ops...)
		if !errors.Is(err, transfer.ErrForeignBatch) {
			return release, err
		}
	}

	return nil, l.bank.Apply(tx.ctx, tx.ops...)
}

func (l *Ledger) commit(tx *txn) error {
	if err := tx.ctx.Err(); err != nil {
		return err
	}

	v := tx.vault
	id := v.ID()
	batch := l.db.NewBatch()

	// staged is false when transfers were committed ahead of the batch.
	staged := true

	if len(tx.ops) > 0 {
		release, err := l.transfer(tx, batch)
		if err != nil {
			logger.Debug("transfer rejected", "asset", v.AssetID, "err", err)
			return fmt.Errorf("%w:\n%w", ErrTransferFailed, err)
		}

		if release == nil {
			staged = false
		} else {
			defer release()
		}
	}

	for _, e := range tx.events {
		v.EventSeq++
		e.Seq = v.EventSeq
		e.Epoch = v.Epoch
		e.Timestamp = tx.now
		e.TotalAssets = v.TotalAssets
		e.TotalShares = v.TotalShares

		data, err := encodeEvent(e)
		if err != nil {
			return err
		}
		batch.Set(eventKey(id, e.Seq), data)
	}

	batch.Set(vaultKey(id), encodeVault(v))

	if tx.list != nil && tx.listDirty {
		batch.Set(whitelistKey(id), encodeWhitelist(tx.list))
	}

	for _, r := range tx.requests {
		batch.Set(requestKey(r.ID), encodeRequest(r))
	}

	for _, k := range tx.indexKeys {
		batch.Set(k, nil)
	}

	if err := batch.Commit(); err != nil {
		if !staged {
			logger.Error("vault commit failed after transfers", "asset", v.AssetID, "err", err)
		}
		return fmt.Errorf("commit vault %s:\n%w", v.AssetID, err)
	}

	for _, e := range tx.events {
		logger.Info(string(e.Type), e.logAttrs(v.AssetID)...)
	}

	return nil
}
