package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// record claims parts and keeps them, reporting whether they were duplicates.
func record(t *testing.T, w *Window, parts ...[]byte) bool {
	t.Helper()

	dup, release, err := w.Claim(context.Background(), parts...)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if !dup {
		release(true)
	}

	return dup
}

func TestWindow_Claim(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	w := NewWithClock(10*time.Second, clock.Now)
	defer w.Close()

	if record(t, w, []byte("ab"), []byte("c")) {
		t.Fatal("first sighting reported as duplicate")
	}

	if !record(t, w, []byte("ab"), []byte("c")) {
		t.Error("repeat not detected")
	}

	if record(t, w, []byte("a"), []byte("bc")) {
		t.Error("different split collided")
	}

	clock.Advance(10 * time.Second)

	if record(t, w, []byte("ab"), []byte("c")) {
		t.Error("expired entry still seen")
	}
}

func TestWindow_ReleaseWithoutKeep(t *testing.T) {
	w := New(time.Minute)
	defer w.Close()

	dup, release, err := w.Claim(context.Background(), []byte("x"))
	if err != nil || dup {
		t.Fatalf("claim = %v, %v", dup, err)
	}

	release(false)
	release(true) // only the first release counts

	if record(t, w, []byte("x")) {
		t.Error("dropped claim recorded as duplicate")
	}

	if w.Len() != 1 {
		t.Errorf("len = %d", w.Len())
	}
}

func TestWindow_PendingBlocksUntilOutcome(t *testing.T) {
	w := New(time.Minute)
	defer w.Close()

	ctx := context.Background()

	_, first, err := w.Claim(ctx, []byte("report"))
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		dup     bool
		release func(bool)
	}
	got := make(chan result, 1)

	go func() {
		dup, release, err := w.Claim(ctx, []byte("report"))
		if err != nil {
			t.Errorf("second claim: %v", err)
		}
		got <- result{dup, release}
	}()

	select {
	case <-got:
		t.Fatal("second claim returned while the first was pending")
	case <-time.After(50 * time.Millisecond):
	}

	// The first attempt failed, so the second takes over the claim.
	first(false)

	r := <-got
	if r.dup || r.release == nil {
		t.Fatalf("second claim after failed first = %+v", r)
	}
	r.release(true)

	if !record(t, w, []byte("report")) {
		t.Error("kept claim not recorded")
	}
}

func TestWindow_ClaimCanceled(t *testing.T) {
	w := New(time.Minute)
	defer w.Close()

	_, release, err := w.Claim(context.Background(), []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	defer release(true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, _, err := w.Claim(ctx, []byte("x")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestWindow_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	w := NewWithClock(time.Second, clock.Now)
	defer w.Close()

	record(t, w, []byte("a"))
	record(t, w, []byte("b"))
	clock.Advance(2 * time.Second)
	w.sweep()

	if n := w.Len(); n != 0 {
		t.Errorf("len after sweep = %d", n)
	}
}

func TestWindow_Concurrent(t *testing.T) {
	w := New(time.Minute)
	defer w.Close()

	var fresh atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			dup, release, err := w.Claim(context.Background(), []byte("same"))
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}

			if !dup {
				fresh.Add(1)
				time.Sleep(5 * time.Millisecond)
				release(true)
			}
		}()
	}

	wg.Wait()

	if fresh.Load() != 1 {
		t.Errorf("fresh claims = %d, want 1", fresh.Load())
	}
}

func TestWindow_DoubleClose(t *testing.T) {
	w := New(0)
	if w.TTL() != DefaultTTL {
		t.Errorf("ttl = %s", w.TTL())
	}

	w.Close()
	w.Close()
}
