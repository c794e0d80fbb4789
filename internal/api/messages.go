package api

import "EpochVault/internal/ledger"

// Header names used by signed requests.
const (
	HeaderSigner    = "X-Vault-Signer"
	HeaderSignature = "X-Vault-Signature"
	HeaderRequestID = "X-Request-ID"
)

// Envelope is embedded in every signed request body. Timestamp is unix
// seconds and must fall inside the server's replay window. Nonce lets two
// otherwise identical requests in the same second carry distinct signatures.
type Envelope struct {
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce,omitempty"`
}

// Stamp sets the request timestamp.
func (e *Envelope) Stamp(ts int64) { e.Timestamp = ts }

// SetNonce sets the request nonce.
func (e *Envelope) SetNonce(n string) { e.Nonce = n }

// Stamper is implemented by every signed request body.
type Stamper interface {
	Stamp(ts int64)
	SetNonce(n string)
}

// CreateVaultRequest is the body of POST /vaults.
type CreateVaultRequest struct {
	Envelope
	ledger.VaultParams
}

// DepositRequest is the body of POST /vaults/{asset}/deposit.
type DepositRequest struct {
	Envelope
	Amount uint64 `json:"amount"`
}

// DepositResponse reports the shares minted.
type DepositResponse struct {
	Shares uint64 `json:"shares"`
}

// WithdrawRequest is the body of POST /vaults/{asset}/withdrawals.
type WithdrawRequest struct {
	Envelope
	Shares uint64 `json:"shares"`
}

// ProcessRequest is the body of POST /vaults/{asset}/withdrawals/{epoch}/process.
type ProcessRequest struct {
	Envelope
	MinExpected uint64 `json:"min_expected"`
}

// AdvanceRequest is the body of POST /vaults/{asset}/epoch.
type AdvanceRequest struct {
	Envelope
	Premium uint64 `json:"premium"`
}

// AdvanceResponse reports the new epoch.
type AdvanceResponse struct {
	Epoch uint64 `json:"epoch"`
}

// ExposureRequest is the body of POST /vaults/{asset}/exposure.
type ExposureRequest struct {
	Envelope
	Notional uint64 `json:"notional"`
	Premium  uint64 `json:"premium"`
}

// CollectRequest is the body of POST /vaults/{asset}/premium. Payer defaults
// to the signer and may not name anyone else.
type CollectRequest struct {
	Envelope
	Payer  string `json:"payer"`
	Amount uint64 `json:"amount"`
}

// SettlementRequest is the body of POST /vaults/{asset}/settlements.
type SettlementRequest struct {
	Envelope
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// MemberRequest is the body of the whitelist add and remove routes.
type MemberRequest struct {
	Envelope
	Member string `json:"member"`
}

// PauseRequest is the body of POST /vaults/{asset}/pause.
type PauseRequest struct {
	Envelope
	Paused bool `json:"paused"`
}

// ParamChangeRequest is the body of POST /vaults/{asset}/params and of the
// deprecated direct duration route.
type ParamChangeRequest struct {
	Envelope
	MinEpochDuration  int64  `json:"min_epoch_duration"`
	UtilizationCapBps uint16 `json:"utilization_cap_bps"`
}

// ReconcileResponse reports the premium pool before and after reconciliation.
type ReconcileResponse struct {
	Before uint64 `json:"before"`
	After  uint64 `json:"after"`
}

// FaucetRequest is the body of POST /faucet.
type FaucetRequest struct {
	Envelope
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

// BalanceResponse is returned by GET /balances/{owner}/{asset} and POST /faucet.
type BalanceResponse struct {
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

// PriceResponse is returned by GET /vaults/{asset}/price.
type PriceResponse struct {
	AssetsPerMillionShares uint64 `json:"assets_per_million_shares"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Vaults        int   `json:"vaults"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	Faucet        bool  `json:"faucet"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
