// Package snapshot exports and restores the complete key space of a node store.
//
// Format, before zstd compression:
//
//	version u8 | count u64 | (klen u32 | key | vlen u32 | value)* | blake3 checksum
//
// Entries are sorted by key and the checksum covers every preceding byte, so
// two exports of the same state are byte-identical.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"EpochVault/internal/storage"
)

const (
	// formatVersion is the current snapshot layout.
	formatVersion = 1

	// checksumSize is the size of the trailing blake3 digest.
	checksumSize = 32

	// maxFieldSize bounds a single key or value read from a snapshot.
	maxFieldSize = 16 << 20
)

var (
	// ErrNotEmpty is returned when importing into a store that already has data.
	ErrNotEmpty = errors.New("target store is not empty")

	// ErrChecksum is returned when the trailing digest does not match.
	ErrChecksum = errors.New("snapshot checksum mismatch")
)

// Info describes an exported or imported snapshot.
type Info struct {
	Entries  uint64   // Entries is the number of key/value pairs
	Checksum [32]byte // Checksum is the blake3 digest of the uncompressed body
}

type entry struct {
	key   []byte
	value []byte
}

// collect copies every pair out of db in key order.
func collect(db *storage.Storage) ([]entry, error) {
	var entries []entry

	err := db.Iterate(func(key, value []byte) error {
		entries = append(entries, entry{
			key:   bytes.Clone(key),
			value: bytes.Clone(value),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// pebble already iterates in order; sorting keeps the format independent of it.
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	return entries, nil
}

// Export writes a compressed snapshot of db to w.
func Export(db *storage.Storage, w io.Writer) (Info, error) {
	entries, err := collect(db)
	if err != nil {
		return Info{}, fmt.Errorf("collect entries:\n%w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return Info{}, fmt.Errorf("create encoder:\n%w", err)
	}

	hasher := blake3.New()
	body := bufio.NewWriter(io.MultiWriter(enc, hasher))

	var buf [8]byte

	body.WriteByte(formatVersion)
	binary.BigEndian.PutUint64(buf[:], uint64(len(entries)))
	body.Write(buf[:])

	for _, e := range entries {
		binary.BigEndian.PutUint32(buf[:4], uint32(len(e.key)))
		body.Write(buf[:4])
		body.Write(e.key)
		binary.BigEndian.PutUint32(buf[:4], uint32(len(e.value)))
		body.Write(buf[:4])
		body.Write(e.value)
	}

	if err := body.Flush(); err != nil {
		enc.Close()
		return Info{}, fmt.Errorf("write body:\n%w", err)
	}

	info := Info{Entries: uint64(len(entries))}
	hasher.Sum(info.Checksum[:0])

	if _, err := enc.Write(info.Checksum[:]); err != nil {
		enc.Close()
		return Info{}, fmt.Errorf("write checksum:\n%w", err)
	}

	if err := enc.Close(); err != nil {
		return Info{}, fmt.Errorf("finish compression:\n%w", err)
	}

	return info, nil
}

// Import verifies a snapshot read from r and writes it into db in one batch.
// db must be empty.
func Import(db *storage.Storage, r io.Reader) (Info, error) {
	empty, err := db.IsEmpty()
	if err != nil {
		return Info{}, fmt.Errorf("inspect target:\n%w", err)
	}

	if !empty {
		return Info{}, ErrNotEmpty
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return Info{}, fmt.Errorf("create decoder:\n%w", err)
	}
	defer dec.Close()

	entries, info, err := read(bufio.NewReader(dec))
	if err != nil {
		return Info{}, err
	}

	batch := db.NewBatch()
	for _, e := range entries {
		batch.Set(e.key, e.value)
	}

	if err := batch.Commit(); err != nil {
		return Info{}, fmt.Errorf("write entries:\n%w", err)
	}

	return info, nil
}

// Verify checks a snapshot without writing it anywhere.
func Verify(r io.Reader) (Info, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Info{}, fmt.Errorf("create decoder:\n%w", err)
	}
	defer dec.Close()

	_, info, err := read(bufio.NewReader(dec))

	return info, err
}

// read parses the uncompressed body and checks the trailing digest.
func read(r io.Reader) ([]entry, Info, error) {
	hasher := blake3.New()
	body := io.TeeReader(r, hasher)

	var buf [8]byte

	if _, err := io.ReadFull(body, buf[:1]); err != nil {
		return nil, Info{}, fmt.Errorf("read version:\n%w", err)
	}

	if buf[0] != formatVersion {
		return nil, Info{}, fmt.Errorf("unsupported snapshot version %d", buf[0])
	}

	if _, err := io.ReadFull(body, buf[:]); err != nil {
		return nil, Info{}, fmt.Errorf("read count:\n%w", err)
	}

	count := binary.BigEndian.Uint64(buf[:])

	var entries []entry
	for i := uint64(0); i < count; i++ {
		key, err := readField(body)
		if err != nil {
			return nil, Info{}, fmt.Errorf("entry %d key:\n%w", i, err)
		}

		value, err := readField(body)
		if err != nil {
			return nil, Info{}, fmt.Errorf("entry %d value:\n%w", i, err)
		}

		if n := len(entries); n > 0 && bytes.Compare(entries[n-1].key, key) >= 0 {
			return nil, Info{}, fmt.Errorf("entry %d out of order", i)
		}

		entries = append(entries, entry{key: key, value: value})
	}

	info := Info{Entries: count}
	hasher.Sum(info.Checksum[:0])

	var stored [checksumSize]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return nil, Info{}, fmt.Errorf("read checksum:\n%w", err)
	}

	if stored != info.Checksum {
		return nil, Info{}, ErrChecksum
	}

	if n, _ := io.Copy(io.Discard, r); n > 0 {
		return nil, Info{}, fmt.Errorf("%d trailing bytes after checksum", n)
	}

	return entries, info, nil
}

func readField(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxFieldSize {
		return nil, fmt.Errorf("field too large: %d > %d", n, maxFieldSize)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	return data, nil
}
