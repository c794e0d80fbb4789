package ledger

import "context"

// AdvanceEpoch closes the current epoch, credits premiumEarned to the
// premium pool and resets the epoch counters. Authority only.
func (l *Ledger) AdvanceEpoch(ctx context.Context, caller, assetID string, premiumEarned uint64) (uint64, error) {
	var epoch uint64

	err := l.update(ctx, "advance_epoch", assetID, func(tx *txn) error {
		v := tx.vault

		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		earliest, err := addSeconds(v.LastRollTimestamp, v.MinEpochDuration)
		if err != nil {
			return err
		}

		if tx.now < earliest {
			return ErrEpochTooSoon
		}

		if err := checkEpochPremium(v, premiumEarned); err != nil {
			return err
		}

		balance, err := checkedAdd(v.PremiumBalance, premiumEarned)
		if err != nil {
			return err
		}

		next, err := checkedAdd(v.Epoch, 1)
		if err != nil {
			return err
		}

		v.PremiumBalance = balance
		v.Epoch = next
		v.EpochNotionalExposed = 0
		v.EpochPremiumEarned = 0
		v.EpochPremiumPerTokenBps = 0
		v.LastRollTimestamp = tx.now
		epoch = next

		tx.emit(EventEpochAdvanced, caller, Event{Premium: premiumEarned})

		return nil
	})

	return epoch, err
}

// checkEpochPremium bounds the premium credited by one epoch roll: at most
// half of total assets, and at most maxYieldBps of the notional exposed.
func checkEpochPremium(v *Vault, premium uint64) error {
	if premium > v.TotalAssets/2 {
		return ErrExcessivePremium
	}

	if v.EpochNotionalExposed == 0 {
		if premium != 0 {
			return ErrExcessiveYield
		}
		return nil
	}

	yield, err := mulDiv(premium, bpsMax, v.EpochNotionalExposed)
	if err != nil {
		return err
	}

	if yield > maxYieldBps {
		return ErrExcessiveYield
	}

	return nil
}
