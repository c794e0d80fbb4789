package api

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/time/rate"
)

const (
	// maxTrackedSigners bounds the limiter map before idle entries are evicted.
	maxTrackedSigners = 4096

	// limiterIdle is how long an unused limiter is kept.
	limiterIdle = 10 * time.Minute
)

// Digest is the message a request signature covers.
func Digest(method, path string, body []byte) [32]byte {
	h := blake3.New()
	h.Write([]byte(method + "\n" + path + "\n"))
	h.Write(body)

	var d [32]byte
	h.Sum(d[:0])

	return d
}

// authError is a request-level rejection with its HTTP status.
type authError struct {
	status int
	code   string
	msg    string
}

func (e *authError) Error() string { return e.msg }

// verify checks the signer and signature headers against the request and
// returns the signer identity (hex public key) and raw signature.
func verify(method, path, signerHex, sigHex string, body []byte) (string, []byte, error) {
	if signerHex == "" || sigHex == "" {
		return "", nil, &authError{401, "unauthenticated", "missing signature headers"}
	}

	pub, err := hex.DecodeString(signerHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "", nil, &authError{401, "unauthenticated", "malformed signer"}
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return "", nil, &authError{401, "unauthenticated", "malformed signature"}
	}

	digest := Digest(method, path, body)
	if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
		return "", nil, &authError{401, "unauthenticated", "signature does not verify"}
	}

	return hex.EncodeToString(pub), sig, nil
}

// checkFreshness rejects bodies whose timestamp is outside window of now.
func checkFreshness(body []byte, now time.Time, window time.Duration) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &authError{400, "bad_request", fmt.Sprintf("decode body: %v", err)}
	}

	if env.Timestamp == 0 {
		return &authError{401, "stale_request", "missing timestamp"}
	}

	skew := now.Sub(time.Unix(env.Timestamp, 0))
	if skew < 0 {
		skew = -skew
	}

	if skew > window {
		return &authError{401, "stale_request", fmt.Sprintf("timestamp outside %s window", window)}
	}

	return nil
}

// limiters hands out one token bucket per key.
type limiters struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiters(perSecond float64, burst int) *limiters {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	if burst <= 0 {
		burst = 1
	}

	return &limiters{buckets: make(map[string]*bucket), limit: limit, burst: burst}
}

// allow takes one token from key's bucket.
func (l *limiters) allow(key string, now time.Time) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxTrackedSigners {
			l.evict(now)
		}

		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}

	b.seen = now

	return b.lim.AllowN(now, 1)
}

func (l *limiters) evict(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > limiterIdle {
			delete(l.buckets, k)
		}
	}
}
