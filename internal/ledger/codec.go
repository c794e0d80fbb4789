package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// recordVersion prefixes every encoded record.
const recordVersion = 1

// errShortRecord is returned when a record ends early.
var errShortRecord = errors.New("record truncated")

// encoder appends Borsh-style little-endian fields.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)  { e.u64(uint64(v)) }
func (e *encoder) hash(h Hash)  { e.buf = append(e.buf, h[:]...) }

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

// str writes a u32 length prefix followed by the bytes.
func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// decoder reads fields written by encoder. The first failure sticks and
// every later read returns zero.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}

	if n < 0 || len(d.data)-d.off < n {
		d.err = errShortRecord
		return nil
	}

	b := d.data[d.off : d.off+n]
	d.off += n

	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) i64() int64 { return int64(d.u64()) }

func (d *decoder) boolean() bool {
	v := d.u8()
	if v > 1 && d.err == nil {
		d.err = fmt.Errorf("invalid bool byte %d", v)
	}

	return v == 1
}

func (d *decoder) hash() Hash {
	var h Hash
	copy(h[:], d.take(len(h)))

	return h
}

func (d *decoder) str() string {
	n := d.u32()

	return string(d.take(int(n)))
}

// finish checks the version byte was valid and no bytes remain.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}

	if d.off != len(d.data) {
		return fmt.Errorf("%d trailing bytes", len(d.data)-d.off)
	}

	return nil
}

func newDecoder(data []byte) *decoder {
	d := &decoder{data: data}
	if v := d.u8(); d.err == nil && v != recordVersion {
		d.err = fmt.Errorf("unsupported record version %d", v)
	}

	return d
}

func encodeVault(v *Vault) []byte {
	e := &encoder{buf: make([]byte, 0, 256)}
	e.u8(recordVersion)
	e.str(v.Authority)
	e.str(v.AssetID)
	e.str(v.PremiumAsset)
	e.u64(v.TotalAssets)
	e.u64(v.TotalShares)
	e.u64(v.VirtualOffset)
	e.u64(v.Epoch)
	e.u16(v.UtilizationCapBps)
	e.i64(v.MinEpochDuration)
	e.i64(v.LastRollTimestamp)
	e.u64(v.PendingWithdrawals)
	e.u64(v.EpochNotionalExposed)
	e.u64(v.EpochPremiumEarned)
	e.u32(v.EpochPremiumPerTokenBps)
	e.u64(v.PremiumBalance)
	e.boolean(v.IsPaused)
	e.i64(v.PendingMinEpochDuration)
	e.u16(v.PendingUtilizationCap)
	e.i64(v.ParamChangeUnlockTime)
	e.u64(v.EventSeq)
	e.i64(v.CreatedAt)

	return e.buf
}

func decodeVault(data []byte) (*Vault, error) {
	d := newDecoder(data)
	v := &Vault{
		Authority:               d.str(),
		AssetID:                 d.str(),
		PremiumAsset:            d.str(),
		TotalAssets:             d.u64(),
		TotalShares:             d.u64(),
		VirtualOffset:           d.u64(),
		Epoch:                   d.u64(),
		UtilizationCapBps:       d.u16(),
		MinEpochDuration:        d.i64(),
		LastRollTimestamp:       d.i64(),
		PendingWithdrawals:      d.u64(),
		EpochNotionalExposed:    d.u64(),
		EpochPremiumEarned:      d.u64(),
		EpochPremiumPerTokenBps: d.u32(),
		PremiumBalance:          d.u64(),
		IsPaused:                d.boolean(),
		PendingMinEpochDuration: d.i64(),
		PendingUtilizationCap:   d.u16(),
		ParamChangeUnlockTime:   d.i64(),
		EventSeq:                d.u64(),
		CreatedAt:               d.i64(),
	}

	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("decode vault:\n%w", err)
	}

	return v, nil
}

func encodeRequest(r *WithdrawalRequest) []byte {
	e := &encoder{buf: make([]byte, 0, 128+len(r.User))}
	e.u8(recordVersion)
	e.hash(r.ID)
	e.hash(r.VaultID)
	e.str(r.User)
	e.u64(r.Shares)
	e.u64(r.RequestEpoch)
	e.boolean(r.Processed)
	e.i64(r.CreatedAt)
	e.i64(r.ProcessedAt)
	e.u64(r.PaidAssets)
	e.u64(r.PaidPremium)

	return e.buf
}

func decodeRequest(data []byte) (*WithdrawalRequest, error) {
	d := newDecoder(data)
	r := &WithdrawalRequest{
		ID:           d.hash(),
		VaultID:      d.hash(),
		User:         d.str(),
		Shares:       d.u64(),
		RequestEpoch: d.u64(),
		Processed:    d.boolean(),
		CreatedAt:    d.i64(),
		ProcessedAt:  d.i64(),
		PaidAssets:   d.u64(),
		PaidPremium:  d.u64(),
	}

	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("decode withdrawal request:\n%w", err)
	}

	return r, nil
}

func encodeWhitelist(w *Whitelist) []byte {
	e := &encoder{buf: make([]byte, 0, 64)}
	e.u8(recordVersion)
	e.str(w.Authority)
	e.hash(w.VaultID)
	e.u32(uint32(len(w.Members)))
	for _, m := range w.Members {
		e.str(m)
	}

	return e.buf
}

func decodeWhitelist(data []byte) (*Whitelist, error) {
	d := newDecoder(data)
	w := &Whitelist{
		Authority: d.str(),
		VaultID:   d.hash(),
	}

	n := d.u32()
	if n > whitelistCapacity {
		return nil, fmt.Errorf("decode whitelist: %d members exceeds capacity", n)
	}

	w.Members = make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		w.Members = append(w.Members, d.str())
	}

	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("decode whitelist:\n%w", err)
	}

	return w, nil
}
