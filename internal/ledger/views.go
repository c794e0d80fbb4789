package ledger

import (
	"context"
	"fmt"
	"sort"

	"EpochVault/internal/transfer"
)

// sharePriceUnit is the share quantity SharePrice is quoted per.
const sharePriceUnit = 1_000_000

// maxEventPage bounds one Events call.
const maxEventPage = 1000

// view runs fn on the stored vault under its lock.
func (l *Ledger) view(assetID string, fn func(v *Vault) error) error {
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

	return fn(v)
}

// Vault returns a copy of the vault for assetID.
func (l *Ledger) Vault(assetID string) (*Vault, error) {
	var out *Vault

	err := l.view(assetID, func(v *Vault) error {
		out = v
		return nil
	})

	return out, err
}

// Vaults returns every vault ordered by asset id.
func (l *Ledger) Vaults() ([]*Vault, error) {
	var out []*Vault

	err := l.db.IteratePrefix([]byte(prefixVault), func(_, value []byte) error {
		v, err := decodeVault(value)
		if err != nil {
			return err
		}

		out = append(out, v)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vaults:\n%w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })

	return out, nil
}

// Whitelist returns the vault's approved recipients.
func (l *Ledger) Whitelist(assetID string) (*Whitelist, error) {
	var out *Whitelist

	err := l.view(assetID, func(v *Vault) error {
		w, err := l.loadWhitelist(v.ID())
		out = w
		return err
	})

	return out, err
}

// Withdrawal returns the request user made at epoch.
func (l *Ledger) Withdrawal(assetID, user string, epoch uint64) (*WithdrawalRequest, error) {
	var out *WithdrawalRequest

	err := l.view(assetID, func(v *Vault) error {
		r, err := l.loadRequest(RequestID(v.ID(), user, epoch))
		if err != nil {
			return err
		}

		if r == nil {
			return ErrRequestNotFound
		}

		out = r

		return nil
	})

	return out, err
}

// Withdrawals returns the vault's requests by epoch, optionally only the
// unprocessed ones.
func (l *Ledger) Withdrawals(assetID string, pendingOnly bool) ([]*WithdrawalRequest, error) {
	var out []*WithdrawalRequest

	err := l.view(assetID, func(v *Vault) error {
		id := v.ID()
		prefix := append([]byte(prefixRequestIndex), id[:]...)

		return l.db.IteratePrefix(prefix, func(key, _ []byte) error {
			var reqID Hash
			copy(reqID[:], key[len(key)-len(reqID):])

			r, err := l.loadRequest(reqID)
			if err != nil {
				return err
			}

			if r == nil || (pendingOnly && r.Processed) {
				return nil
			}

			out = append(out, r)

			return nil
		})
	})

	return out, err
}

// Events returns up to limit events with sequence >= from, oldest first.
func (l *Ledger) Events(assetID string, from uint64, limit int) ([]*Event, error) {
	if limit <= 0 || limit > maxEventPage {
		return nil, ErrInvalidPageLimit
	}

	if from == 0 {
		from = 1
	}

	out := make([]*Event, 0)

	err := l.view(assetID, func(v *Vault) error {
		id := v.ID()

		for seq := from; seq <= v.EventSeq && len(out) < limit; seq++ {
			data, err := l.db.Get(eventKey(id, seq))
			if err != nil {
				return err
			}

			if data == nil {
				return fmt.Errorf("event %d missing for vault %s", seq, v.AssetID)
			}

			e, err := decodeEvent(data)
			if err != nil {
				return err
			}

			out = append(out, e)
		}

		return nil
	})

	return out, err
}

// Quote is a read-only conversion at the current price.
type Quote struct {
	Shares  uint64 `json:"shares"`
	Amount  uint64 `json:"amount"`
	Premium uint64 `json:"premium,omitempty"`
}

// PreviewDeposit returns the shares a deposit of amount would mint now.
func (l *Ledger) PreviewDeposit(assetID string, amount uint64) (Quote, error) {
	var q Quote

	err := l.view(assetID, func(v *Vault) error {
		if amount == 0 {
			return ErrZeroAmount
		}

		shares, _, err := sharesForDeposit(v, amount)
		q = Quote{Shares: shares, Amount: amount}

		return err
	})

	return q, err
}

// PreviewRedeem returns the collateral and uncapped premium shares would
// redeem for at the current price.
func (l *Ledger) PreviewRedeem(assetID string, shares uint64) (Quote, error) {
	var q Quote

	err := l.view(assetID, func(v *Vault) error {
		if shares == 0 {
			return ErrZeroAmount
		}

		effective, err := v.EffectiveShares()
		if err != nil {
			return err
		}

		amount, err := mulDiv(shares, v.TotalAssets, effective)
		if err != nil {
			return err
		}

		premium, err := mulDiv(shares, v.PremiumBalance, effective)
		if err != nil {
			return err
		}

		q = Quote{Shares: shares, Amount: amount, Premium: premium}

		return nil
	})

	return q, err
}

// SharePrice returns the collateral redeemable per 1e6 shares.
func (l *Ledger) SharePrice(assetID string) (uint64, error) {
	var price uint64

	err := l.view(assetID, func(v *Vault) error {
		effective, err := v.EffectiveShares()
		if err != nil {
			return err
		}

		price, err = mulDiv(sharePriceUnit, v.TotalAssets, effective)

		return err
	})

	return price, err
}

// Solvency compares recorded vault balances with what the collaborator holds.
type Solvency struct {
	AssetID            string `json:"asset_id"`
	RecordedAssets     uint64 `json:"recorded_assets"`
	HeldAssets         uint64 `json:"held_assets"`
	AssetShortfall     uint64 `json:"asset_shortfall"`
	RecordedPremium    uint64 `json:"recorded_premium"`
	HeldPremium        uint64 `json:"held_premium"`
	PremiumShortfall   uint64 `json:"premium_shortfall"`
	OutstandingShares  uint64 `json:"outstanding_shares"`
	EscrowedShares     uint64 `json:"escrowed_shares"`
	PendingWithdrawals uint64 `json:"pending_withdrawals"`
}

// Solvent reports whether the vault holds at least what it records.
func (s Solvency) Solvent() bool {
	return s.AssetShortfall == 0 && s.PremiumShortfall == 0
}

// Solvency reads the vault's holdings from the collaborator.
func (l *Ledger) Solvency(ctx context.Context, assetID string) (Solvency, error) {
	var s Solvency

	err := l.view(assetID, func(v *Vault) error {
		held := func(acct transfer.Account) (uint64, error) {
			b, err := l.bank.Balance(ctx, acct)
			if err != nil {
				return 0, fmt.Errorf("%w:\n%w", ErrTransferFailed, err)
			}
			return b, nil
		}

		assets, err := held(v.CollateralAccount())
		if err != nil {
			return err
		}

		premium, err := held(v.PremiumAccount())
		if err != nil {
			return err
		}

		escrow, err := held(v.EscrowAccount())
		if err != nil {
			return err
		}

		s = Solvency{
			AssetID:            v.AssetID,
			RecordedAssets:     v.TotalAssets,
			HeldAssets:         assets,
			AssetShortfall:     shortfall(v.TotalAssets, assets),
			RecordedPremium:    v.PremiumBalance,
			HeldPremium:        premium,
			PremiumShortfall:   shortfall(v.PremiumBalance, premium),
			OutstandingShares:  v.TotalShares,
			EscrowedShares:     escrow,
			PendingWithdrawals: v.PendingWithdrawals,
		}

		return nil
	})

	return s, err
}

func shortfall(recorded, held uint64) uint64 {
	if held >= recorded {
		return 0
	}

	return recorded - held
}
