package feed

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"EpochVault/internal/types"
)

const (
	// minReportSize is the smallest buffer that can hold a root table offset.
	minReportSize = 8

	// maxNonceSize bounds the agent-chosen nonce.
	maxNonceSize = 64
)

// Report is one exposure observation from the pricing agent.
type Report struct {
	AssetID  string // AssetID names the vault
	Notional uint64 // Notional is the exposure added this report
	Premium  uint64 // Premium is the premium earned alongside it
	Nonce    []byte // Nonce distinguishes otherwise identical reports
}

// Ack is the listener's reply to a Report.
type Ack struct {
	OK                   bool   // OK is true when the exposure was recorded or was a duplicate
	Code                 string // Code is the ledger error code on rejection
	Message              string // Message is the human-readable rejection reason
	Epoch                uint64 // Epoch is the vault epoch at recording time
	EpochNotionalExposed uint64 // EpochNotionalExposed is the post-record cumulative exposure
	Duplicate            bool   // Duplicate is true when the report was already seen
}

// EncodeReport serializes a report as a flatbuffers ExposureReport.
func EncodeReport(r Report) []byte {
	b := flatbuffers.NewBuilder(64 + len(r.AssetID) + len(r.Nonce))

	asset := b.CreateString(r.AssetID)

	var nonce flatbuffers.UOffsetT
	if len(r.Nonce) > 0 {
		nonce = b.CreateByteVector(r.Nonce)
	}

	types.ExposureReportStart(b)
	types.ExposureReportAddAssetId(b, asset)
	types.ExposureReportAddNotional(b, r.Notional)
	types.ExposureReportAddPremium(b, r.Premium)
	if len(r.Nonce) > 0 {
		types.ExposureReportAddNonce(b, nonce)
	}
	b.Finish(types.ExposureReportEnd(b))

	return b.FinishedBytes()
}

// DecodeReport parses and bounds-checks an ExposureReport.
func DecodeReport(data []byte) (r Report, err error) {
	// FlatBuffers panics on malformed offsets.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed exposure report")
		}
	}()

	if len(data) < minReportSize {
		return Report{}, fmt.Errorf("exposure report too short: %d bytes", len(data))
	}

	t := types.GetRootAsExposureReport(data, 0)

	r = Report{
		AssetID:  string(t.AssetId()),
		Notional: t.Notional(),
		Premium:  t.Premium(),
		Nonce:    append([]byte(nil), t.NonceBytes()...),
	}

	if r.AssetID == "" {
		return Report{}, fmt.Errorf("exposure report has no asset id")
	}

	if len(r.Nonce) > maxNonceSize {
		return Report{}, fmt.Errorf("nonce too long: %d > %d", len(r.Nonce), maxNonceSize)
	}

	return r, nil
}

// EncodeAck serializes an ack as a flatbuffers ExposureAck.
func EncodeAck(a Ack) []byte {
	b := flatbuffers.NewBuilder(64 + len(a.Code) + len(a.Message))

	var code, msg flatbuffers.UOffsetT
	if a.Code != "" {
		code = b.CreateString(a.Code)
	}
	if a.Message != "" {
		msg = b.CreateString(a.Message)
	}

	types.ExposureAckStart(b)
	types.ExposureAckAddOk(b, a.OK)
	if a.Code != "" {
		types.ExposureAckAddCode(b, code)
	}
	if a.Message != "" {
		types.ExposureAckAddMessage(b, msg)
	}
	types.ExposureAckAddEpoch(b, a.Epoch)
	types.ExposureAckAddEpochNotionalExposed(b, a.EpochNotionalExposed)
	types.ExposureAckAddDuplicate(b, a.Duplicate)
	b.Finish(types.ExposureAckEnd(b))

	return b.FinishedBytes()
}

// DecodeAck parses an ExposureAck.
func DecodeAck(data []byte) (a Ack, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed exposure ack")
		}
	}()

	if len(data) < minReportSize {
		return Ack{}, fmt.Errorf("exposure ack too short: %d bytes", len(data))
	}

	t := types.GetRootAsExposureAck(data, 0)

	return Ack{
		OK:                   t.Ok(),
		Code:                 string(t.Code()),
		Message:              string(t.Message()),
		Epoch:                t.Epoch(),
		EpochNotionalExposed: t.EpochNotionalExposed(),
		Duplicate:            t.Duplicate(),
	}, nil
}
