package ledger

import (
	"context"
	"fmt"
)

// AddToWhitelist approves identity as a settlement recipient.
func (l *Ledger) AddToWhitelist(ctx context.Context, caller, assetID, identity string) error {
	if !validIdentity(identity) {
		return ErrInvalidIdentity
	}

	return l.update(ctx, "whitelist_add", assetID, func(tx *txn) error {
		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		list, err := tx.whitelist()
		if err != nil {
			return err
		}

		if list.Contains(identity) {
			return ErrAlreadyListed
		}

		if len(list.Members) >= whitelistCapacity {
			return ErrWhitelistFull
		}

		list.Members = append(list.Members, identity)
		tx.listDirty = true

		tx.emit(EventWhitelistAdded, caller, Event{Counterparty: identity})

		return nil
	})
}

// RemoveFromWhitelist revokes identity, preserving the order of the rest.
func (l *Ledger) RemoveFromWhitelist(ctx context.Context, caller, assetID, identity string) error {
	return l.update(ctx, "whitelist_remove", assetID, func(tx *txn) error {
		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		list, err := tx.whitelist()
		if err != nil {
			return err
		}

		i := list.indexOf(identity)
		if i < 0 {
			return ErrNotListed
		}

		list.Members = append(list.Members[:i], list.Members[i+1:]...)
		tx.listDirty = true

		tx.emit(EventWhitelistRemoved, caller, Event{Counterparty: identity})

		return nil
	})
}

// SetPaused sets the emergency pause flag. Pausing blocks deposits,
// withdrawal requests and withdrawal processing.
func (l *Ledger) SetPaused(ctx context.Context, caller, assetID string, paused bool) error {
	return l.update(ctx, "set_paused", assetID, func(tx *txn) error {
		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		tx.vault.IsPaused = paused

		if paused {
			tx.emit(EventPaused, caller, Event{})
		} else {
			tx.emit(EventUnpaused, caller, Event{})
		}

		return nil
	})
}

// ParamChange is a staged parameter update.
type ParamChange struct {
	MinEpochDuration  int64  `json:"min_epoch_duration"`
	UtilizationCapBps uint16 `json:"utilization_cap_bps"`
	UnlockTime        int64  `json:"unlock_time"`
}

// QueueParamChange stages new parameters executable after the timelock.
// Queueing over a staged change replaces it and restarts the delay.
func (l *Ledger) QueueParamChange(ctx context.Context, caller, assetID string, minEpochDuration int64, capBps uint16) (ParamChange, error) {
	var out ParamChange

	err := l.update(ctx, "queue_param_change", assetID, func(tx *txn) error {
		v := tx.vault

		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		if capBps > bpsMax {
			return ErrInvalidCap
		}

		if minEpochDuration < 0 {
			return ErrInvalidDuration
		}

		unlock, err := addSeconds(tx.now, timelockDelay)
		if err != nil {
			return err
		}

		v.PendingMinEpochDuration = minEpochDuration
		v.PendingUtilizationCap = capBps
		v.ParamChangeUnlockTime = unlock

		out = ParamChange{MinEpochDuration: minEpochDuration, UtilizationCapBps: capBps, UnlockTime: unlock}

		tx.emit(EventParamChangeQueued, caller, Event{})

		return nil
	})

	return out, err
}

// ExecuteParamChange applies the staged parameters once unlocked.
func (l *Ledger) ExecuteParamChange(ctx context.Context, caller, assetID string) error {
	return l.update(ctx, "execute_param_change", assetID, func(tx *txn) error {
		v := tx.vault

		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		if !v.HasPendingChange() {
			return ErrNoPendingChange
		}

		if tx.now < v.ParamChangeUnlockTime {
			return ErrTimelockNotExpired
		}

		v.MinEpochDuration = v.PendingMinEpochDuration
		v.UtilizationCapBps = v.PendingUtilizationCap
		clearPendingChange(v)

		tx.emit(EventParamChangeApplied, caller, Event{})

		return nil
	})
}

// CancelParamChange drops any staged change.
func (l *Ledger) CancelParamChange(ctx context.Context, caller, assetID string) error {
	return l.update(ctx, "cancel_param_change", assetID, func(tx *txn) error {
		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		clearPendingChange(tx.vault)

		tx.emit(EventParamChangeCanceled, caller, Event{})

		return nil
	})
}

// SetMinEpochDuration is the retired direct-change path. It always fails;
// use QueueParamChange.
func (l *Ledger) SetMinEpochDuration(ctx context.Context, caller, assetID string, _ int64) error {
	return l.update(ctx, "set_min_epoch_duration", assetID, func(tx *txn) error {
		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		return ErrDeprecated
	})
}

// ReconcilePremium overwrites the recorded premium pool with the premium
// the vault actually holds. Returns the previous and new pool.
func (l *Ledger) ReconcilePremium(ctx context.Context, caller, assetID string) (before, after uint64, err error) {
	err = l.update(ctx, "reconcile_premium", assetID, func(tx *txn) error {
		v := tx.vault

		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		held, err := tx.l.bank.Balance(tx.ctx, v.PremiumAccount())
		if err != nil {
			return fmt.Errorf("%w:\n%w", ErrTransferFailed, err)
		}

		before, after = v.PremiumBalance, held
		v.PremiumBalance = held

		tx.emit(EventPremiumReconciled, caller, Event{Previous: before, Amount: held})

		return nil
	})

	return before, after, err
}

func clearPendingChange(v *Vault) {
	v.PendingMinEpochDuration = 0
	v.PendingUtilizationCap = 0
	v.ParamChangeUnlockTime = 0
}
