package ledger

import (
	"context"

	"EpochVault/internal/logger"
	"EpochVault/internal/transfer"
)

// VaultParams describes a vault at creation.
type VaultParams struct {
	AssetID           string `json:"asset_id"`            // AssetID is the collateral asset
	PremiumAsset      string `json:"premium_asset"`       // PremiumAsset is the settlement currency
	UtilizationCapBps uint16 `json:"utilization_cap_bps"` // UtilizationCapBps bounds exposure per epoch
	MinEpochDuration  int64  `json:"min_epoch_duration"`  // MinEpochDuration is seconds between rolls
}

// CreateVault creates the vault and whitelist for p.AssetID with authority
// as its administrator.
func (l *Ledger) CreateVault(ctx context.Context, authority string, p VaultParams) (*Vault, error) {
	if !validIdentity(authority) {
		return nil, ErrInvalidIdentity
	}

	if !validAssetID(p.AssetID) || !validAssetID(p.PremiumAsset) || p.AssetID == p.PremiumAsset {
		return nil, ErrInvalidAssetID
	}

	if p.UtilizationCapBps > bpsMax {
		return nil, ErrInvalidCap
	}

	if p.MinEpochDuration < 0 {
		return nil, ErrInvalidDuration
	}

	id := VaultID(p.AssetID)
	release := l.locks.lock(id)
	defer release()

	exists, err := l.vaultExists(id)
	if err != nil {
		return nil, err
	}

	if exists {
		logger.Debug("operation rejected", "op", "create_vault", "asset", p.AssetID, "code", ErrVaultExists.Code)
		return nil, ErrVaultExists
	}

	now := l.now().Unix()
	v := &Vault{
		Authority:         authority,
		AssetID:           p.AssetID,
		PremiumAsset:      p.PremiumAsset,
		UtilizationCapBps: p.UtilizationCapBps,
		MinEpochDuration:  p.MinEpochDuration,
		LastRollTimestamp: now,
		CreatedAt:         now,
	}

	tx := &txn{
		ctx:       ctx,
		l:         l,
		vault:     v,
		now:       now,
		list:      &Whitelist{Authority: authority, VaultID: id, Members: []string{}},
		listDirty: true,
	}
	tx.emit(EventVaultCreated, authority, Event{})

	if err := l.commit(tx); err != nil {
		return nil, err
	}

	out := *v

	return &out, nil
}

// Deposit moves amount of collateral from user into the vault and mints
// shares at the current effective price. Returns the shares minted.
func (l *Ledger) Deposit(ctx context.Context, user, assetID string, amount uint64) (uint64, error) {
	if !validIdentity(user) {
		return 0, ErrInvalidIdentity
	}

	var minted uint64

	err := l.update(ctx, "deposit", assetID, func(tx *txn) error {
		v := tx.vault

		if amount == 0 {
			return ErrZeroAmount
		}

		if v.IsPaused {
			return ErrVaultPaused
		}

		shares, offset, err := sharesForDeposit(v, amount)
		if err != nil {
			return err
		}

		newAssets, err := checkedAdd(v.TotalAssets, amount)
		if err != nil {
			return err
		}

		newShares, err := checkedAdd(v.TotalShares, shares)
		if err != nil {
			return err
		}

		tx.move(transfer.Transfer(
			transfer.Signer{Identity: user},
			transfer.Account{Owner: user, Asset: v.AssetID},
			v.CollateralAccount(),
			amount,
		))
		tx.move(transfer.Mint(
			tx.l.vaultSigner(v),
			transfer.Account{Owner: user, Asset: v.ShareAsset()},
			shares,
		))

		// First funded state starts epoch 1.
		if v.Epoch == 0 && v.TotalAssets == 0 {
			v.Epoch = 1
			v.LastRollTimestamp = tx.now
		}

		v.VirtualOffset = offset
		v.TotalAssets = newAssets
		v.TotalShares = newShares
		minted = shares

		tx.emit(EventDeposit, user, Event{Amount: amount, Shares: shares})

		return nil
	})

	return minted, err
}

// sharesForDeposit returns the shares minted for amount and the virtual
// offset in force afterwards.
func sharesForDeposit(v *Vault, amount uint64) (shares, offset uint64, err error) {
	effective, err := v.EffectiveShares()
	if err != nil {
		return 0, 0, err
	}

	if effective == 0 {
		return amount, virtualOffset, nil
	}

	if v.TotalAssets == 0 {
		return 0, 0, ErrDivisionByZero
	}

	shares, err = mulDiv(amount, effective, v.TotalAssets)
	if err != nil {
		return 0, 0, err
	}

	if shares == 0 {
		return 0, 0, ErrZeroShares
	}

	return shares, v.VirtualOffset, nil
}
