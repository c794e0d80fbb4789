package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"EpochVault/internal/ledger"
	"EpochVault/internal/logger"
	"EpochVault/internal/transfer"
)

// defaultEventLimit is used when GET /vaults/{asset}/events has no limit.
const defaultEventLimit = 100

// decode unmarshals a signed body, writing a 400 on failure.
func decode(w http.ResponseWriter, body []byte, v any) bool {
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "decode body: "+err.Error())
		return false
	}

	return true
}

// uintParam parses a path or query value as a uint64, writing a 400 on failure.
func uintParam(w http.ResponseWriter, name, raw string) (uint64, bool) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid "+name)
		return 0, false
	}

	return v, true
}

func ok(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Reads.

func (s *Server) handleListVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := s.ledger.Vaults()
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vaults)
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledger.Vault(r.PathValue("asset"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetWhitelist(w http.ResponseWriter, r *http.Request) {
	wl, err := s.ledger.Whitelist(r.PathValue("asset"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wl)
}

func (s *Server) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	pending := r.URL.Query().Get("pending") == "true"

	reqs, err := s.ledger.Withdrawals(r.PathValue("asset"), pending)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleGetWithdrawal(w http.ResponseWriter, r *http.Request) {
	epoch, valid := uintParam(w, "epoch", r.PathValue("epoch"))
	if !valid {
		return
	}

	req, err := s.ledger.Withdrawal(r.PathValue("asset"), r.PathValue("user"), epoch)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var from uint64
	if raw := q.Get("from"); raw != "" {
		v, valid := uintParam(w, "from", raw)
		if !valid {
			return
		}
		from = v
	}

	limit := defaultEventLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		limit = v
	}

	events, err := s.ledger.Events(r.PathValue("asset"), from, limit)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handlePreviewDeposit(w http.ResponseWriter, r *http.Request) {
	amount, valid := uintParam(w, "amount", r.URL.Query().Get("amount"))
	if !valid {
		return
	}

	q, err := s.ledger.PreviewDeposit(r.PathValue("asset"), amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handlePreviewRedeem(w http.ResponseWriter, r *http.Request) {
	shares, valid := uintParam(w, "shares", r.URL.Query().Get("shares"))
	if !valid {
		return
	}

	q, err := s.ledger.PreviewRedeem(r.PathValue("asset"), shares)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.ledger.SharePrice(r.PathValue("asset"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PriceResponse{AssetsPerMillionShares: price})
}

func (s *Server) handleSolvency(w http.ResponseWriter, r *http.Request) {
	sol, err := s.ledger.Solvency(r.Context(), r.PathValue("asset"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct := transfer.Account{Owner: r.PathValue("owner"), Asset: r.PathValue("asset")}

	bal, err := s.bank.Balance(r.Context(), acct)
	if err != nil {
		writeTransferError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{Owner: acct.Owner, Asset: acct.Asset, Balance: bal})
}

// Vault lifecycle.

func (s *Server) handleCreateVault(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req CreateVaultRequest
	if !decode(w, body, &req) {
		return
	}

	v, err := s.ledger.CreateVault(r.Context(), caller, req.VaultParams)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req DepositRequest
	if !decode(w, body, &req) {
		return
	}

	shares, err := s.ledger.Deposit(r.Context(), caller, r.PathValue("asset"), req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DepositResponse{Shares: shares})
}

func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req WithdrawRequest
	if !decode(w, body, &req) {
		return
	}

	wr, err := s.ledger.RequestWithdrawal(r.Context(), caller, r.PathValue("asset"), req.Shares)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, wr)
}

func (s *Server) handleProcessWithdrawal(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	epoch, valid := uintParam(w, "epoch", r.PathValue("epoch"))
	if !valid {
		return
	}

	var req ProcessRequest
	if !decode(w, body, &req) {
		return
	}

	red, err := s.ledger.ProcessWithdrawal(r.Context(), caller, r.PathValue("asset"), epoch, req.MinExpected)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, red)
}

// Epoch and exposure.

func (s *Server) handleAdvanceEpoch(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req AdvanceRequest
	if !decode(w, body, &req) {
		return
	}

	epoch, err := s.ledger.AdvanceEpoch(r.Context(), caller, r.PathValue("asset"), req.Premium)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdvanceResponse{Epoch: epoch})
}

func (s *Server) handleRecordExposure(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req ExposureRequest
	if !decode(w, body, &req) {
		return
	}

	exp, err := s.ledger.RecordNotionalExposure(r.Context(), caller, r.PathValue("asset"), req.Notional, req.Premium)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleCollectPremium(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req CollectRequest
	if !decode(w, body, &req) {
		return
	}

	// Over HTTP only the caller's own signature is present, so the payer is the caller.
	if req.Payer == "" {
		req.Payer = caller
	}

	if req.Payer != caller {
		writeError(w, http.StatusForbidden, "payer_must_sign", "premium payer must be the signer")
		return
	}

	if err := s.ledger.CollectPremium(r.Context(), caller, req.Payer, r.PathValue("asset"), req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

func (s *Server) handlePaySettlement(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req SettlementRequest
	if !decode(w, body, &req) {
		return
	}

	if err := s.ledger.PaySettlement(r.Context(), caller, req.Recipient, r.PathValue("asset"), req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

// Access control and timelock.

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req MemberRequest
	if !decode(w, body, &req) {
		return
	}

	if err := s.ledger.AddToWhitelist(r.Context(), caller, r.PathValue("asset"), req.Member); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req MemberRequest
	if !decode(w, body, &req) {
		return
	}

	if err := s.ledger.RemoveFromWhitelist(r.Context(), caller, r.PathValue("asset"), req.Member); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req PauseRequest
	if !decode(w, body, &req) {
		return
	}

	if err := s.ledger.SetPaused(r.Context(), caller, r.PathValue("asset"), req.Paused); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

func (s *Server) handleQueueParams(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req ParamChangeRequest
	if !decode(w, body, &req) {
		return
	}

	change, err := s.ledger.QueueParamChange(r.Context(), caller, r.PathValue("asset"), req.MinEpochDuration, req.UtilizationCapBps)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, change)
}

func (s *Server) handleExecuteParams(w http.ResponseWriter, r *http.Request, caller string, _ []byte) {
	if err := s.ledger.ExecuteParamChange(r.Context(), caller, r.PathValue("asset")); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

func (s *Server) handleCancelParams(w http.ResponseWriter, r *http.Request, caller string, _ []byte) {
	if err := s.ledger.CancelParamChange(r.Context(), caller, r.PathValue("asset")); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

func (s *Server) handleSetMinEpochDuration(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req ParamChangeRequest
	if !decode(w, body, &req) {
		return
	}

	if err := s.ledger.SetMinEpochDuration(r.Context(), caller, r.PathValue("asset"), req.MinEpochDuration); err != nil {
		writeLedgerError(w, err)
		return
	}

	ok(w)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request, caller string, _ []byte) {
	before, after, err := s.ledger.ReconcilePremium(r.Context(), caller, r.PathValue("asset"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{Before: before, After: after})
}

// Dev faucet.

// isShareAsset reports whether asset lies in the vault share namespace.
func isShareAsset(asset string) bool {
	return len(asset) > 1 && ledger.ShareAsset(asset[1:]) == asset
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request, caller string, body []byte) {
	var req FaucetRequest
	if !decode(w, body, &req) {
		return
	}

	if isShareAsset(req.Asset) {
		writeError(w, http.StatusBadRequest, "share_asset", "faucet does not mint vault shares")
		return
	}

	if req.Amount == 0 || req.Amount > maxFaucetAmount {
		writeError(w, http.StatusBadRequest, "invalid_amount", "faucet amount out of range")
		return
	}

	acct := transfer.Account{Owner: caller, Asset: req.Asset}
	if err := s.bank.Fund(r.Context(), acct, req.Amount); err != nil {
		writeTransferError(w, err)
		return
	}

	bal, err := s.bank.Balance(r.Context(), acct)
	if err != nil {
		writeTransferError(w, err)
		return
	}

	logger.Info("faucet grant", "owner", caller, "asset", req.Asset, "amount", req.Amount)

	writeJSON(w, http.StatusOK, BalanceResponse{Owner: caller, Asset: req.Asset, Balance: bal})
}

// writeTransferError maps bank failures outside the ledger.
func writeTransferError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transfer.ErrInvalidOp):
		writeError(w, http.StatusBadRequest, "invalid_account", err.Error())
	case errors.Is(err, transfer.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, transfer.ErrOverflow), errors.Is(err, transfer.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "transfer_failed", err.Error())
	default:
		logger.Error("bank error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
