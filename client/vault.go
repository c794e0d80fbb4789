package client

import (
	"context"
	"net/url"
	"strconv"

	"EpochVault/internal/api"
	"EpochVault/internal/ledger"
)

// Health checks that the node answers.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil, nil)
}

// Status returns node status.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var st api.StatusResponse
	err := c.get(ctx, "/status", nil, &st)

	return st, err
}

// Balance returns owner's bank balance of asset.
func (c *Client) Balance(ctx context.Context, owner, asset string) (uint64, error) {
	_, p := segments("balances", owner, asset)

	var resp api.BalanceResponse
	err := c.get(ctx, p, nil, &resp)

	return resp.Balance, err
}

// Faucet mints dev balances to the client identity and returns the new balance.
func (c *Client) Faucet(ctx context.Context, asset string, amount uint64) (uint64, error) {
	var resp api.BalanceResponse
	err := c.post(ctx, "/faucet", "/faucet", &api.FaucetRequest{Asset: asset, Amount: amount}, &resp)

	return resp.Balance, err
}

// CreateVault creates a vault with the client identity as authority.
func (c *Client) CreateVault(ctx context.Context, p ledger.VaultParams) (*ledger.Vault, error) {
	var v ledger.Vault
	if err := c.post(ctx, "/vaults", "/vaults", &api.CreateVaultRequest{VaultParams: p}, &v); err != nil {
		return nil, err
	}

	return &v, nil
}

// Vaults lists every vault.
func (c *Client) Vaults(ctx context.Context) ([]*ledger.Vault, error) {
	var vs []*ledger.Vault
	err := c.get(ctx, "/vaults", nil, &vs)

	return vs, err
}

// Vault returns one vault.
func (c *Client) Vault(ctx context.Context, asset string) (*ledger.Vault, error) {
	_, p := segments("vaults", asset)

	var v ledger.Vault
	if err := c.get(ctx, p, nil, &v); err != nil {
		return nil, err
	}

	return &v, nil
}

// vaultPost sends a signed request to /vaults/{asset}/{rest...}.
func (c *Client) vaultPost(ctx context.Context, asset string, rest []string, body api.Stamper, result any) error {
	raw, escaped := segments(append([]string{"vaults", asset}, rest...)...)

	return c.post(ctx, raw, escaped, body, result)
}

// Deposit deposits amount of collateral and returns the shares minted.
func (c *Client) Deposit(ctx context.Context, asset string, amount uint64) (uint64, error) {
	var resp api.DepositResponse
	err := c.vaultPost(ctx, asset, []string{"deposit"}, &api.DepositRequest{Amount: amount}, &resp)

	return resp.Shares, err
}

// RequestWithdrawal escrows shares for redemption after the current epoch.
func (c *Client) RequestWithdrawal(ctx context.Context, asset string, shares uint64) (*ledger.WithdrawalRequest, error) {
	var wr ledger.WithdrawalRequest
	if err := c.vaultPost(ctx, asset, []string{"withdrawals"}, &api.WithdrawRequest{Shares: shares}, &wr); err != nil {
		return nil, err
	}

	return &wr, nil
}

// ProcessWithdrawal settles the client's request from requestEpoch.
func (c *Client) ProcessWithdrawal(ctx context.Context, asset string, requestEpoch, minExpected uint64) (ledger.Redemption, error) {
	var red ledger.Redemption
	rest := []string{"withdrawals", strconv.FormatUint(requestEpoch, 10), "process"}
	err := c.vaultPost(ctx, asset, rest, &api.ProcessRequest{MinExpected: minExpected}, &red)

	return red, err
}

// Withdrawal returns user's request from epoch.
func (c *Client) Withdrawal(ctx context.Context, asset, user string, epoch uint64) (*ledger.WithdrawalRequest, error) {
	_, p := segments("vaults", asset, "withdrawals", user, strconv.FormatUint(epoch, 10))

	var wr ledger.WithdrawalRequest
	if err := c.get(ctx, p, nil, &wr); err != nil {
		return nil, err
	}

	return &wr, nil
}

// Withdrawals lists a vault's requests, optionally only unprocessed ones.
func (c *Client) Withdrawals(ctx context.Context, asset string, pendingOnly bool) ([]*ledger.WithdrawalRequest, error) {
	_, p := segments("vaults", asset, "withdrawals")

	q := url.Values{}
	if pendingOnly {
		q.Set("pending", "true")
	}

	var reqs []*ledger.WithdrawalRequest
	err := c.get(ctx, p, q, &reqs)

	return reqs, err
}

// AdvanceEpoch rolls the vault with the epoch's premium and returns the new epoch.
func (c *Client) AdvanceEpoch(ctx context.Context, asset string, premium uint64) (uint64, error) {
	var resp api.AdvanceResponse
	err := c.vaultPost(ctx, asset, []string{"epoch"}, &api.AdvanceRequest{Premium: premium}, &resp)

	return resp.Epoch, err
}

// RecordExposure records notional exposure and premium for the current epoch.
func (c *Client) RecordExposure(ctx context.Context, asset string, notional, premium uint64) (ledger.Exposure, error) {
	var exp ledger.Exposure
	err := c.vaultPost(ctx, asset, []string{"exposure"}, &api.ExposureRequest{Notional: notional, Premium: premium}, &exp)

	return exp, err
}

// CollectPremium pays amount of premium currency from the client into the vault.
func (c *Client) CollectPremium(ctx context.Context, asset string, amount uint64) error {
	return c.vaultPost(ctx, asset, []string{"premium"}, &api.CollectRequest{Amount: amount}, nil)
}

// PaySettlement pays a whitelisted recipient from the vault's premium holding.
func (c *Client) PaySettlement(ctx context.Context, asset, recipient string, amount uint64) error {
	return c.vaultPost(ctx, asset, []string{"settlements"}, &api.SettlementRequest{Recipient: recipient, Amount: amount}, nil)
}

// Whitelist returns the vault's settlement recipients.
func (c *Client) Whitelist(ctx context.Context, asset string) (*ledger.Whitelist, error) {
	_, p := segments("vaults", asset, "whitelist")

	var wl ledger.Whitelist
	if err := c.get(ctx, p, nil, &wl); err != nil {
		return nil, err
	}

	return &wl, nil
}

// AddToWhitelist adds member to the vault's whitelist.
func (c *Client) AddToWhitelist(ctx context.Context, asset, member string) error {
	return c.vaultPost(ctx, asset, []string{"whitelist"}, &api.MemberRequest{Member: member}, nil)
}

// RemoveFromWhitelist removes member from the vault's whitelist.
func (c *Client) RemoveFromWhitelist(ctx context.Context, asset, member string) error {
	return c.vaultPost(ctx, asset, []string{"whitelist", "remove"}, &api.MemberRequest{Member: member}, nil)
}

// SetPaused pauses or unpauses the vault.
func (c *Client) SetPaused(ctx context.Context, asset string, paused bool) error {
	return c.vaultPost(ctx, asset, []string{"pause"}, &api.PauseRequest{Paused: paused}, nil)
}

// QueueParamChange stages new parameters behind the timelock.
func (c *Client) QueueParamChange(ctx context.Context, asset string, minEpochDuration int64, capBps uint16) (ledger.ParamChange, error) {
	var change ledger.ParamChange
	body := &api.ParamChangeRequest{MinEpochDuration: minEpochDuration, UtilizationCapBps: capBps}
	err := c.vaultPost(ctx, asset, []string{"params"}, body, &change)

	return change, err
}

// ExecuteParamChange applies staged parameters once the timelock expired.
func (c *Client) ExecuteParamChange(ctx context.Context, asset string) error {
	return c.vaultPost(ctx, asset, []string{"params", "execute"}, &api.Envelope{}, nil)
}

// CancelParamChange discards staged parameters.
func (c *Client) CancelParamChange(ctx context.Context, asset string) error {
	return c.vaultPost(ctx, asset, []string{"params", "cancel"}, &api.Envelope{}, nil)
}

// ReconcilePremium clamps the premium pool to what the vault actually holds.
func (c *Client) ReconcilePremium(ctx context.Context, asset string) (before, after uint64, err error) {
	var resp api.ReconcileResponse
	err = c.vaultPost(ctx, asset, []string{"reconcile"}, &api.Envelope{}, &resp)

	return resp.Before, resp.After, err
}

// Events pages through a vault's event log starting at sequence from.
func (c *Client) Events(ctx context.Context, asset string, from uint64, limit int) ([]*ledger.Event, error) {
	_, p := segments("vaults", asset, "events")

	q := url.Values{}
	q.Set("from", strconv.FormatUint(from, 10))
	q.Set("limit", strconv.Itoa(limit))

	var events []*ledger.Event
	err := c.get(ctx, p, q, &events)

	return events, err
}

// PreviewDeposit quotes the shares amount would mint.
func (c *Client) PreviewDeposit(ctx context.Context, asset string, amount uint64) (ledger.Quote, error) {
	_, p := segments("vaults", asset, "preview", "deposit")

	var q ledger.Quote
	err := c.get(ctx, p, url.Values{"amount": {strconv.FormatUint(amount, 10)}}, &q)

	return q, err
}

// PreviewRedeem quotes what shares would redeem for now.
func (c *Client) PreviewRedeem(ctx context.Context, asset string, shares uint64) (ledger.Quote, error) {
	_, p := segments("vaults", asset, "preview", "redeem")

	var q ledger.Quote
	err := c.get(ctx, p, url.Values{"shares": {strconv.FormatUint(shares, 10)}}, &q)

	return q, err
}

// SharePrice returns collateral per 1e6 shares.
func (c *Client) SharePrice(ctx context.Context, asset string) (uint64, error) {
	_, p := segments("vaults", asset, "price")

	var resp api.PriceResponse
	err := c.get(ctx, p, nil, &resp)

	return resp.AssetsPerMillionShares, err
}

// Solvency compares recorded totals with bank holdings.
func (c *Client) Solvency(ctx context.Context, asset string) (ledger.Solvency, error) {
	_, p := segments("vaults", asset, "solvency")

	var s ledger.Solvency
	err := c.get(ctx, p, nil, &s)

	return s, err
}
