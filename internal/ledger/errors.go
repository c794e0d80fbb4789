package ledger

import (
	"errors"
)

// Kind classifies a ledger failure.
type Kind uint8

const (
	// KindUnknown is any error that did not originate in the ledger.
	KindUnknown Kind = iota
	// KindValidation covers malformed or zero-valued inputs.
	KindValidation
	// KindState covers operations invalid for the current record state.
	KindState
	// KindArithmetic covers checked-arithmetic failures.
	KindArithmetic
	// KindAuthorization covers wrong callers.
	KindAuthorization
	// KindSafetyCap covers economic safety bounds.
	KindSafetyCap
	// KindTimelock covers time-delayed operations invoked too early.
	KindTimelock
	// KindNotFound covers missing vaults and requests.
	KindNotFound
	// KindTransfer covers a failed collaborator call.
	KindTransfer
)

var kindNames = [...]string{
	KindUnknown:       "unknown",
	KindValidation:    "validation",
	KindState:         "state",
	KindArithmetic:    "arithmetic",
	KindAuthorization: "authorization",
	KindSafetyCap:     "safety_cap",
	KindTimelock:      "timelock",
	KindNotFound:      "not_found",
	KindTransfer:      "transfer",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "unknown"
}

// Error is a classified ledger failure with a stable code.
type Error struct {
	Kind Kind   // Kind is the failure class
	Code string // Code is a stable machine-readable identifier
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// Validation
var (
	ErrZeroAmount       = newError(KindValidation, "zero_amount", "amount must be greater than zero")
	ErrZeroShares       = newError(KindValidation, "zero_shares", "deposit would mint zero shares")
	ErrInvalidAssetID   = newError(KindValidation, "invalid_asset_id", "asset id must be 1 to 64 bytes without '/' or NUL")
	ErrInvalidIdentity  = newError(KindValidation, "invalid_identity", "identity is empty or reserved")
	ErrInvalidCap       = newError(KindValidation, "invalid_utilization_cap", "utilization cap exceeds 10000 bps")
	ErrInvalidDuration  = newError(KindValidation, "invalid_epoch_duration", "min epoch duration must not be negative")
	ErrAlreadyListed    = newError(KindValidation, "already_whitelisted", "identity is already whitelisted")
	ErrNotListed        = newError(KindValidation, "not_in_whitelist", "identity is not in the whitelist")
	ErrInvalidPageLimit = newError(KindValidation, "invalid_limit", "limit must be between 1 and 1000")
)

// State
var (
	ErrAlreadyProcessed   = newError(KindState, "already_processed", "withdrawal already processed")
	ErrEpochNotSettled    = newError(KindState, "epoch_not_settled", "request epoch has not been settled yet")
	ErrVaultPaused        = newError(KindState, "vault_paused", "vault is paused")
	ErrVaultExists        = newError(KindState, "vault_exists", "vault still exists")
	ErrRequestExists      = newError(KindState, "request_exists", "withdrawal already requested this epoch")
	ErrInsufficientShares = newError(KindState, "insufficient_shares", "share balance below requested amount")
	ErrNoPendingChange    = newError(KindState, "no_pending_change", "no parameter change queued")
)

// Arithmetic
var (
	ErrOverflow       = newError(KindArithmetic, "overflow", "arithmetic overflow")
	ErrDivisionByZero = newError(KindArithmetic, "division_by_zero", "division by zero")
)

// Authorization
var (
	ErrUnauthorized    = newError(KindAuthorization, "unauthorized", "caller is not the vault authority")
	ErrNotWhitelisted  = newError(KindAuthorization, "not_whitelisted", "recipient is not whitelisted")
	ErrNotRequestOwner = newError(KindAuthorization, "not_request_owner", "caller does not own the withdrawal request")
)

// SafetyCap
var (
	ErrExceedsUtilizationCap = newError(KindSafetyCap, "exceeds_utilization_cap", "notional exposure exceeds utilization cap")
	ErrExcessivePremium      = newError(KindSafetyCap, "excessive_premium", "premium exceeds half of total assets")
	ErrExcessiveYield        = newError(KindSafetyCap, "excessive_yield", "implied epoch yield exceeds 2000 bps")
	ErrExcessiveSettlement   = newError(KindSafetyCap, "excessive_settlement", "settlement exceeds premium earned this epoch")
	ErrSlippageExceeded      = newError(KindSafetyCap, "slippage_exceeded", "redemption amount below minimum expected")
	ErrInsufficientVault     = newError(KindSafetyCap, "insufficient_vault_balance", "vault holds less than redemption amount")
	ErrWhitelistFull         = newError(KindSafetyCap, "whitelist_full", "whitelist is at capacity")
)

// Timelock
var (
	ErrEpochTooSoon       = newError(KindTimelock, "epoch_too_soon", "min epoch duration has not elapsed")
	ErrTimelockNotExpired = newError(KindTimelock, "timelock_not_expired", "parameter change timelock has not expired")
	ErrDeprecated         = newError(KindTimelock, "deprecated", "direct parameter change is disabled, queue a timelocked change")
)

// NotFound
var (
	ErrVaultNotFound   = newError(KindNotFound, "vault_not_found", "vault not found")
	ErrRequestNotFound = newError(KindNotFound, "request_not_found", "withdrawal request not found")
)

// ErrTransferFailed wraps every collaborator rejection.
var ErrTransferFailed = newError(KindTransfer, "transfer_failed", "value transfer failed")

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return "internal"
}
