package ledger

import (
	"context"
	"fmt"

	"EpochVault/internal/logger"
	"EpochVault/internal/transfer"
)

// Redemption is the payout of a processed withdrawal.
type Redemption struct {
	Shares       uint64 `json:"shares"`        // Shares burned from escrow
	Amount       uint64 `json:"amount"`        // Amount of collateral paid
	Premium      uint64 `json:"premium"`       // Premium paid after capping
	PremiumOwed  uint64 `json:"premium_owed"`  // PremiumOwed is the uncapped pro-rata claim
	RequestEpoch uint64 `json:"request_epoch"` // RequestEpoch of the settled request
}

// RequestWithdrawal escrows shares from user and queues a redemption for
// the current epoch. One request per user per epoch.
func (l *Ledger) RequestWithdrawal(ctx context.Context, user, assetID string, shares uint64) (*WithdrawalRequest, error) {
	if !validIdentity(user) {
		return nil, ErrInvalidIdentity
	}

	var out *WithdrawalRequest

	err := l.update(ctx, "request_withdrawal", assetID, func(tx *txn) error {
		v := tx.vault

		if shares == 0 {
			return ErrZeroAmount
		}

		if v.IsPaused {
			return ErrVaultPaused
		}

		holding := transfer.Account{Owner: user, Asset: v.ShareAsset()}

		balance, err := tx.l.bank.Balance(tx.ctx, holding)
		if err != nil {
			return fmt.Errorf("%w:\n%w", ErrTransferFailed, err)
		}

		if balance < shares {
			return ErrInsufficientShares
		}

		id := RequestID(v.ID(), user, v.Epoch)

		existing, err := tx.l.loadRequest(id)
		if err != nil {
			return err
		}

		if existing != nil {
			return ErrRequestExists
		}

		pending, err := checkedAdd(v.PendingWithdrawals, shares)
		if err != nil {
			return err
		}

		tx.move(transfer.Transfer(transfer.Signer{Identity: user}, holding, v.EscrowAccount(), shares))

		v.PendingWithdrawals = pending

		req := &WithdrawalRequest{
			ID:           id,
			VaultID:      v.ID(),
			User:         user,
			Shares:       shares,
			RequestEpoch: v.Epoch,
			CreatedAt:    tx.now,
		}
		tx.putRequest(req, true)

		tx.emit(EventWithdrawalRequested, user, Event{Shares: shares})

		cp := *req
		out = &cp

		return nil
	})

	return out, err
}

// ProcessWithdrawal settles the request user made at requestEpoch: burns
// the escrowed shares, pays the collateral, and pays the pro-rata premium
// claim capped at the premium actually held. Only the requesting user may
// process, and only after the vault epoch has moved past requestEpoch.
func (l *Ledger) ProcessWithdrawal(ctx context.Context, user, assetID string, requestEpoch, minExpected uint64) (Redemption, error) {
	var out Redemption

	err := l.update(ctx, "process_withdrawal", assetID, func(tx *txn) error {
		v := tx.vault

		req, err := tx.l.loadRequest(RequestID(v.ID(), user, requestEpoch))
		if err != nil {
			return err
		}

		if req == nil {
			return ErrRequestNotFound
		}

		if req.User != user {
			return ErrNotRequestOwner
		}

		if req.Processed {
			return ErrAlreadyProcessed
		}

		if v.IsPaused {
			return ErrVaultPaused
		}

		if v.Epoch <= req.RequestEpoch {
			return ErrEpochNotSettled
		}

		effective, err := v.EffectiveShares()
		if err != nil {
			return err
		}

		amount, err := mulDiv(req.Shares, v.TotalAssets, effective)
		if err != nil {
			return err
		}

		if amount < minExpected {
			return ErrSlippageExceeded
		}

		if v.TotalAssets < amount {
			return ErrInsufficientVault
		}

		owed, err := mulDiv(req.Shares, v.PremiumBalance, effective)
		if err != nil {
			return err
		}

		premium, err := tx.cappedPremium(owed)
		if err != nil {
			return err
		}

		assets, err := checkedSub(v.TotalAssets, amount)
		if err != nil {
			return err
		}

		total, err := checkedSub(v.TotalShares, req.Shares)
		if err != nil {
			return err
		}

		pending, err := checkedSub(v.PendingWithdrawals, req.Shares)
		if err != nil {
			return err
		}

		pool, err := checkedSub(v.PremiumBalance, premium)
		if err != nil {
			return err
		}

		signer := tx.l.vaultSigner(v)
		tx.move(transfer.Burn(signer, v.EscrowAccount(), req.Shares))

		if amount > 0 {
			tx.move(transfer.Transfer(signer, v.CollateralAccount(),
				transfer.Account{Owner: user, Asset: v.AssetID}, amount))
		}

		if premium > 0 {
			tx.move(transfer.Transfer(signer, v.PremiumAccount(),
				transfer.Account{Owner: user, Asset: v.PremiumAsset}, premium))
		}

		v.TotalAssets = assets
		v.TotalShares = total
		v.PendingWithdrawals = pending
		v.PremiumBalance = pool

		req.Processed = true
		req.ProcessedAt = tx.now
		req.PaidAssets = amount
		req.PaidPremium = premium
		tx.putRequest(req, false)

		out = Redemption{
			Shares:       req.Shares,
			Amount:       amount,
			Premium:      premium,
			PremiumOwed:  owed,
			RequestEpoch: req.RequestEpoch,
		}

		tx.emit(EventWithdrawalProcessed, user, Event{Shares: req.Shares, Amount: amount, Premium: premium})

		return nil
	})

	return out, err
}

// cappedPremium returns min(owed, premium held by the vault), logging
// when the recorded pool exceeds the held balance.
func (tx *txn) cappedPremium(owed uint64) (uint64, error) {
	if owed == 0 {
		return 0, nil
	}

	held, err := tx.l.bank.Balance(tx.ctx, tx.vault.PremiumAccount())
	if err != nil {
		return 0, fmt.Errorf("%w:\n%w", ErrTransferFailed, err)
	}

	if held >= owed {
		return owed, nil
	}

	logger.Warn("premium claim capped by held balance",
		"asset", tx.vault.AssetID,
		"owed", owed,
		"held", held,
		"recorded_pool", tx.vault.PremiumBalance,
	)

	return held, nil
}
