package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"EpochVault/internal/transfer"
)

const (
	// virtualOffset is the share offset fixed at the first deposit.
	virtualOffset = 1000
	// maxYieldBps caps the implied premium yield of one epoch.
	maxYieldBps = 2000
	// whitelistCapacity bounds the number of approved counterparties.
	whitelistCapacity = 10
	// timelockDelay is the seconds between queueing and executing a change.
	timelockDelay = 86400
	// maxAssetIDLen bounds asset identifiers.
	maxAssetIDLen = 64
	// vaultOwnerPrefix marks custodial owner identities.
	vaultOwnerPrefix = "vault:"
	// shareAssetPrefix derives the share asset from the collateral asset.
	shareAssetPrefix = "v"
)

// Hash is a 32-byte blake3 digest used as record identifier.
type Hash [32]byte

// String returns the hex form of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText encodes h as hex for JSON.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex digest.
func (h *Hash) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != len(h) {
		return fmt.Errorf("hash must be %d hex chars, got %d", 2*len(h), len(text))
	}

	_, err := hex.Decode(h[:], text)

	return err
}

// VaultID derives the stable vault identifier from an asset id.
func VaultID(assetID string) Hash {
	return blake3.Sum256(append([]byte("vault"), assetID...))
}

// RequestID derives the withdrawal request identifier.
// Format: "withdrawal" || vault_id || user || epoch (u64 little-endian)
func RequestID(vaultID Hash, user string, epoch uint64) Hash {
	buf := make([]byte, 0, 10+32+len(user)+8)
	buf = append(buf, "withdrawal"...)
	buf = append(buf, vaultID[:]...)
	buf = append(buf, user...)
	buf = binary.LittleEndian.AppendUint64(buf, epoch)

	return blake3.Sum256(buf)
}

// VaultOwner returns the custodial identity holding a vault's funds.
func VaultOwner(id Hash) string {
	return vaultOwnerPrefix + id.String()
}

// ShareAsset returns the share asset minted by the vault for assetID.
func ShareAsset(assetID string) string {
	return shareAssetPrefix + assetID
}

// Vault is the ledger record for one managed asset.
type Vault struct {
	Authority               string `json:"authority"`                   // Authority may perform privileged operations
	AssetID                 string `json:"asset_id"`                    // AssetID is the collateral asset
	PremiumAsset            string `json:"premium_asset"`               // PremiumAsset is the settlement currency
	TotalAssets             uint64 `json:"total_assets"`                // TotalAssets is collateral held
	TotalShares             uint64 `json:"total_shares"`                // TotalShares is shares outstanding
	VirtualOffset           uint64 `json:"virtual_offset"`              // VirtualOffset is added to TotalShares for pricing
	Epoch                   uint64 `json:"epoch"`                       // Epoch is 0 until the first deposit
	UtilizationCapBps       uint16 `json:"utilization_cap_bps"`         // UtilizationCapBps bounds exposure per epoch
	MinEpochDuration        int64  `json:"min_epoch_duration"`          // MinEpochDuration is seconds between rolls
	LastRollTimestamp       int64  `json:"last_roll_timestamp"`         // LastRollTimestamp is the last epoch advance
	PendingWithdrawals      uint64 `json:"pending_withdrawals"`         // PendingWithdrawals is escrowed shares
	EpochNotionalExposed    uint64 `json:"epoch_notional_exposed"`      // EpochNotionalExposed is this epoch's exposure
	EpochPremiumEarned      uint64 `json:"epoch_premium_earned"`        // EpochPremiumEarned is this epoch's premium
	EpochPremiumPerTokenBps uint32 `json:"epoch_premium_per_token_bps"` // EpochPremiumPerTokenBps is earned/exposed in bps
	PremiumBalance          uint64 `json:"premium_balance"`             // PremiumBalance is the distributable premium pool
	IsPaused                bool   `json:"is_paused"`                   // IsPaused blocks deposits and withdrawals
	PendingMinEpochDuration int64  `json:"pending_min_epoch_duration"`  // PendingMinEpochDuration is the staged duration
	PendingUtilizationCap   uint16 `json:"pending_utilization_cap_bps"` // PendingUtilizationCap is the staged cap
	ParamChangeUnlockTime   int64  `json:"param_change_unlock_time"`    // ParamChangeUnlockTime is 0 when nothing is staged
	EventSeq                uint64 `json:"event_seq"`                   // EventSeq is the last event sequence number
	CreatedAt               int64  `json:"created_at"`                  // CreatedAt is the creation time
}

// ID returns the vault identifier.
func (v *Vault) ID() Hash {
	return VaultID(v.AssetID)
}

// Owner returns the custodial identity holding the vault's funds.
func (v *Vault) Owner() string {
	return VaultOwner(v.ID())
}

// ShareAsset returns the asset of the vault's shares.
func (v *Vault) ShareAsset() string {
	return ShareAsset(v.AssetID)
}

// EffectiveShares returns TotalShares + VirtualOffset.
func (v *Vault) EffectiveShares() (uint64, error) {
	return checkedAdd(v.TotalShares, v.VirtualOffset)
}

// HasPendingChange reports whether a parameter change is staged.
func (v *Vault) HasPendingChange() bool {
	return v.ParamChangeUnlockTime != 0
}

// CollateralAccount is the vault's collateral holding.
func (v *Vault) CollateralAccount() transfer.Account {
	return transfer.Account{Owner: v.Owner(), Asset: v.AssetID}
}

// PremiumAccount is the vault's premium holding.
func (v *Vault) PremiumAccount() transfer.Account {
	return transfer.Account{Owner: v.Owner(), Asset: v.PremiumAsset}
}

// EscrowAccount holds shares queued for redemption.
func (v *Vault) EscrowAccount() transfer.Account {
	return transfer.Account{Owner: v.Owner(), Asset: v.ShareAsset()}
}

// WithdrawalRequest is one queued redemption.
type WithdrawalRequest struct {
	ID           Hash   `json:"id"`                     // ID is RequestID(vault, user, epoch)
	VaultID      Hash   `json:"vault_id"`               // VaultID is the owning vault
	User         string `json:"user"`                   // User receives the payout
	Shares       uint64 `json:"shares"`                 // Shares is the escrowed amount
	RequestEpoch uint64 `json:"request_epoch"`          // RequestEpoch is the vault epoch at creation
	Processed    bool   `json:"processed"`              // Processed is terminal
	CreatedAt    int64  `json:"created_at"`             // CreatedAt is the request time
	ProcessedAt  int64  `json:"processed_at,omitempty"` // ProcessedAt is the settlement time
	PaidAssets   uint64 `json:"paid_assets,omitempty"`  // PaidAssets is collateral paid at settlement
	PaidPremium  uint64 `json:"paid_premium,omitempty"` // PaidPremium is premium paid at settlement
}

// Whitelist is the bounded list of approved settlement recipients.
type Whitelist struct {
	Authority string   `json:"authority"`
	VaultID   Hash     `json:"vault_id"`
	Members   []string `json:"members"`
}

// Contains reports whether identity is listed.
func (w *Whitelist) Contains(identity string) bool {
	return w.indexOf(identity) >= 0
}

func (w *Whitelist) indexOf(identity string) int {
	for i, m := range w.Members {
		if m == identity {
			return i
		}
	}

	return -1
}

// validAssetID checks asset id length and charset.
func validAssetID(id string) bool {
	if len(id) == 0 || len(id) > maxAssetIDLen {
		return false
	}

	return !strings.ContainsAny(id, "/\x00")
}

// validIdentity rejects empty identities and custodial ones.
func validIdentity(id string) bool {
	if id == "" || strings.ContainsRune(id, 0) {
		return false
	}

	return !strings.HasPrefix(id, vaultOwnerPrefix)
}
