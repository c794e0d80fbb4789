// Package dedup remembers recently seen payloads for a fixed window.
package dedup

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

const (
	// DefaultTTL is used when a Window is created with a non-positive ttl.
	DefaultTTL = 30 * time.Second

	// minSweep bounds how often expired entries are collected.
	minSweep = time.Second
)

// Window tracks blake3 digests of payloads seen within the last ttl.
type Window struct {
	seen    map[[32]byte]int64         // seen maps payload digest to first-seen time (unix nano)
	pending map[[32]byte]chan struct{} // pending holds claims whose outcome is not known yet
	mu      sync.Mutex                 // mu protects seen and pending
	ttl  int64              // ttl in nanoseconds
	now  func() time.Time   // now is the clock used for expiry
	stop chan struct{}      // stop ends the sweep goroutine
	once sync.Once          // once guards Close
	wg   sync.WaitGroup     // wg waits for the sweep goroutine
}

// New starts a window that forgets entries after ttl.
func New(ttl time.Duration) *Window {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock is New with an injected clock.
func NewWithClock(ttl time.Duration, now func() time.Time) *Window {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	w := &Window{
		seen:    make(map[[32]byte]int64),
		pending: make(map[[32]byte]chan struct{}),
		ttl:     int64(ttl),
		now:     now,
		stop:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.sweepLoop(max(ttl/2, minSweep))

	return w
}

// TTL returns the window length.
func (w *Window) TTL() time.Duration {
	return time.Duration(w.ttl)
}

// Claim reserves the payload until the returned release is called.
//
// dup is true when the payload was already recorded inside the window. A
// payload claimed by another caller blocks Claim until that claim is released
// or ctx ends; a release with keep=false lets the waiter claim it in turn.
// release(true) records the payload, release(false) drops the claim.
func (w *Window) Claim(ctx context.Context, parts ...[]byte) (dup bool, release func(keep bool), err error) {
	key := digest(parts)

	for {
		w.mu.Lock()

		if ch, busy := w.pending[key]; busy {
			w.mu.Unlock()

			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return false, nil, ctx.Err()
			}
		}

		if ts, ok := w.seen[key]; ok && w.now().UnixNano()-ts < w.ttl {
			w.mu.Unlock()
			return true, nil, nil
		}

		ch := make(chan struct{})
		w.pending[key] = ch
		w.mu.Unlock()

		var once sync.Once

		return false, func(keep bool) {
			once.Do(func() {
				w.mu.Lock()
				delete(w.pending, key)
				if keep {
					w.seen[key] = w.now().UnixNano()
				}
				w.mu.Unlock()

				close(ch)
			})
		}, nil
	}
}

// Len returns the number of live entries, expired ones included until the next sweep.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.seen)
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (w *Window) Close() {
	w.once.Do(func() {
		close(w.stop)
	})
	w.wg.Wait()
}

func (w *Window) sweepLoop(every time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stop:
			return
		}
	}
}

// digest hashes length-prefixed parts so that ("ab","c") and ("a","bc") differ.
func digest(parts [][]byte) [32]byte {
	h := blake3.New()

	var n [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(n[:], uint32(len(p)))
		h.Write(n[:])
		h.Write(p)
	}

	var key [32]byte
	copy(key[:], h.Sum(nil))

	return key
}

// sweep removes expired entries.
func (w *Window) sweep() {
	now := w.now().UnixNano()

	w.mu.Lock()
	for key, ts := range w.seen {
		if now-ts >= w.ttl {
			delete(w.seen, key)
		}
	}
	w.mu.Unlock()
}
