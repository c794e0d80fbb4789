package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
)

// EventType names a committed ledger operation.
type EventType string

const (
	EventVaultCreated        EventType = "vault_created"
	EventDeposit             EventType = "deposit"
	EventWithdrawalRequested EventType = "withdrawal_requested"
	EventWithdrawalProcessed EventType = "withdrawal_processed"
	EventEpochAdvanced       EventType = "epoch_advanced"
	EventExposureRecorded    EventType = "exposure_recorded"
	EventPremiumCollected    EventType = "premium_collected"
	EventSettlementPaid      EventType = "settlement_paid"
	EventWhitelistAdded      EventType = "whitelist_added"
	EventWhitelistRemoved    EventType = "whitelist_removed"
	EventPaused              EventType = "paused"
	EventUnpaused            EventType = "unpaused"
	EventParamChangeQueued   EventType = "param_change_queued"
	EventParamChangeApplied  EventType = "param_change_executed"
	EventParamChangeCanceled EventType = "param_change_canceled"
	EventPremiumReconciled   EventType = "premium_reconciled"
)

// Event is one entry of a vault's append-only log.
// Only the fields meaningful for Type are set.
type Event struct {
	Seq          uint64    `json:"seq"`
	Type         EventType `json:"type"`
	Epoch        uint64    `json:"epoch"`
	Timestamp    int64     `json:"timestamp"`
	Actor        string    `json:"actor"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       uint64    `json:"amount,omitempty"`
	Shares       uint64    `json:"shares,omitempty"`
	Premium      uint64    `json:"premium,omitempty"`
	Notional     uint64    `json:"notional,omitempty"`
	Previous     uint64    `json:"previous,omitempty"`
	TotalAssets  uint64    `json:"total_assets"`
	TotalShares  uint64    `json:"total_shares"`
}

// logAttrs returns the non-zero fields as slog arguments.
func (e *Event) logAttrs(assetID string) []any {
	args := []any{"asset", assetID, "epoch", e.Epoch, "seq", e.Seq, "actor", e.Actor}

	if e.Counterparty != "" {
		args = append(args, "counterparty", e.Counterparty)
	}

	for _, f := range []struct {
		key string
		val uint64
	}{
		{"amount", e.Amount},
		{"shares", e.Shares},
		{"premium", e.Premium},
		{"notional", e.Notional},
		{"previous", e.Previous},
	} {
		if f.val != 0 {
			args = append(args, f.key, f.val)
		}
	}

	return append(args,
		slog.Uint64("total_assets", e.TotalAssets),
		slog.Uint64("total_shares", e.TotalShares),
	)
}

// eventKey returns evt:<vault id><seq big-endian> so keys sort by sequence.
func eventKey(vaultID Hash, seq uint64) []byte {
	key := make([]byte, 0, len(prefixEvent)+32+8)
	key = append(key, prefixEvent...)
	key = append(key, vaultID[:]...)

	return binary.BigEndian.AppendUint64(key, seq)
}

func encodeEvent(e *Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event:\n%w", err)
	}

	return data, nil
}

func decodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event:\n%w", err)
	}

	return &e, nil
}
