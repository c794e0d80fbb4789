package ledger

import (
	"context"

	"EpochVault/internal/transfer"
)

// Exposure is the epoch exposure state after a recorded trade.
type Exposure struct {
	Epoch                   uint64 `json:"epoch"`
	EpochNotionalExposed    uint64 `json:"epoch_notional_exposed"`
	EpochPremiumEarned      uint64 `json:"epoch_premium_earned"`
	EpochPremiumPerTokenBps uint32 `json:"epoch_premium_per_token_bps"`
	MaxExposure             uint64 `json:"max_exposure"`
}

// RecordNotionalExposure adds a trade agreed by the pricing agent to the
// epoch counters, rejecting it when the utilization cap would be exceeded.
// Authority only.
func (l *Ledger) RecordNotionalExposure(ctx context.Context, caller, assetID string, notional, premium uint64) (Exposure, error) {
	var out Exposure

	err := l.update(ctx, "record_notional_exposure", assetID, func(tx *txn) error {
		v := tx.vault

		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		limit, err := maxExposure(v)
		if err != nil {
			return err
		}

		exposed, err := checkedAdd(v.EpochNotionalExposed, notional)
		if err != nil {
			return err
		}

		if exposed > limit {
			return ErrExceedsUtilizationCap
		}

		earned, err := checkedAdd(v.EpochPremiumEarned, premium)
		if err != nil {
			return err
		}

		bps := premiumRate(earned, exposed)

		v.EpochNotionalExposed = exposed
		v.EpochPremiumEarned = earned
		v.EpochPremiumPerTokenBps = bps

		out = Exposure{
			Epoch:                   v.Epoch,
			EpochNotionalExposed:    exposed,
			EpochPremiumEarned:      earned,
			EpochPremiumPerTokenBps: bps,
			MaxExposure:             limit,
		}

		tx.emit(EventExposureRecorded, caller, Event{Notional: notional, Premium: premium})

		return nil
	})

	return out, err
}

// CollectPremium moves amount of premium currency from payer into the
// vault's premium holding and counts it as earned this epoch. The call must
// be made by the authority; payer signs the transfer.
func (l *Ledger) CollectPremium(ctx context.Context, caller, payer, assetID string, amount uint64) error {
	if !validIdentity(payer) {
		return ErrInvalidIdentity
	}

	return l.update(ctx, "collect_premium", assetID, func(tx *txn) error {
		v := tx.vault

		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		if amount == 0 {
			return ErrZeroAmount
		}

		earned, err := checkedAdd(v.EpochPremiumEarned, amount)
		if err != nil {
			return err
		}

		bps := premiumRate(earned, v.EpochNotionalExposed)

		tx.move(transfer.Transfer(
			transfer.Signer{Identity: payer},
			transfer.Account{Owner: payer, Asset: v.PremiumAsset},
			v.PremiumAccount(),
			amount,
		))

		v.EpochPremiumEarned = earned
		v.EpochPremiumPerTokenBps = bps

		tx.emit(EventPremiumCollected, caller, Event{Counterparty: payer, Amount: amount})

		return nil
	})
}

// PaySettlement pays amount of premium currency from the vault to a
// whitelisted recipient, bounded by the premium earned this epoch.
// Authority only.
func (l *Ledger) PaySettlement(ctx context.Context, caller, recipient, assetID string, amount uint64) error {
	return l.update(ctx, "pay_settlement", assetID, func(tx *txn) error {
		v := tx.vault

		if err := tx.requireAuthority(caller); err != nil {
			return err
		}

		if amount == 0 {
			return ErrZeroAmount
		}

		list, err := tx.whitelist()
		if err != nil {
			return err
		}

		if !list.Contains(recipient) {
			return ErrNotWhitelisted
		}

		if amount > v.EpochPremiumEarned {
			return ErrExcessiveSettlement
		}

		earned := v.EpochPremiumEarned - amount

		bps := premiumRate(earned, v.EpochNotionalExposed)

		tx.move(transfer.Transfer(
			tx.l.vaultSigner(v),
			v.PremiumAccount(),
			transfer.Account{Owner: recipient, Asset: v.PremiumAsset},
			amount,
		))

		v.EpochPremiumEarned = earned
		v.EpochPremiumPerTokenBps = bps

		tx.emit(EventSettlementPaid, caller, Event{Counterparty: recipient, Amount: amount})

		return nil
	})
}

// maxExposure returns total_assets * utilization_cap_bps / 10000.
func maxExposure(v *Vault) (uint64, error) {
	return mulDiv(v.TotalAssets, uint64(v.UtilizationCapBps), bpsMax)
}

// premiumRate returns earned * 10000 / exposed, or 0 with no exposure. The
// counter is informational and saturates instead of failing the operation.
func premiumRate(earned, exposed uint64) uint32 {
	if exposed == 0 {
		return 0
	}

	return bpsRatio(earned, exposed)
}
