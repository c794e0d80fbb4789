package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// benchStorage creates a storage for benchmarks.
func benchStorage(b *testing.B) *Storage {
	b.Helper()

	s, err := New(filepath.Join(b.TempDir(), "db"))
	if err != nil {
		b.Fatalf("failed to create storage: %v", err)
	}

	b.Cleanup(func() { s.Close() })

	return s
}

// recordKey builds a prefixed key the way ledger records are keyed.
func recordKey(prefix string, i uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], i)
	return key
}

// BenchmarkBatchCommit benchmarks one ledger-shaped commit:
// a vault record, an event and optionally a withdrawal request.
func BenchmarkBatchCommit(b *testing.B) {
	for _, ops := range []int{2, 3, 8} {
		b.Run(fmt.Sprintf("ops=%d", ops), func(b *testing.B) {
			s := benchStorage(b)
			value := make([]byte, 192)

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				batch := s.NewBatch()
				for j := 0; j < ops; j++ {
					batch.Set(recordKey("evt:", uint64(i*ops+j)), value)
				}

				if err := batch.Commit(); err != nil {
					b.Fatalf("Commit failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkParallelBatchCommit benchmarks commits against disjoint key ranges,
// the pattern produced by operations on different vaults.
func BenchmarkParallelBatchCommit(b *testing.B) {
	s := benchStorage(b)
	value := make([]byte, 192)

	var counter atomic.Uint64

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			n := counter.Add(1)

			batch := s.NewBatch()
			batch.Set(recordKey("vlt:", n), value)
			batch.Set(recordKey("evt:", n), value)

			if err := batch.Commit(); err != nil {
				b.Fatalf("Commit failed: %v", err)
			}
		}
	})
}

// BenchmarkGet benchmarks point reads on a populated store.
func BenchmarkGet(b *testing.B) {
	s := benchStorage(b)

	const numEntries = 10_000
	value := make([]byte, 192)

	for i := 0; i < numEntries; i++ {
		if err := s.Set(recordKey("vlt:", uint64(i)), value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := s.Get(recordKey("vlt:", uint64(i%numEntries))); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
	}
}
