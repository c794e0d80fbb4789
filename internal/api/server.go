// Package api exposes the vault ledger over HTTP.
//
// Reads are unauthenticated GETs. Every mutation is a POST whose body is
// signed with the caller's ed25519 key; the hex public key is the identity
// the ledger sees.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"EpochVault/internal/dedup"
	"EpochVault/internal/ledger"
	"EpochVault/internal/logger"
	"EpochVault/internal/transfer"
)

const (
	// maxBodySize bounds a signed request body.
	maxBodySize = 64 << 10

	// defaultReplayWindow is the accepted clock skew for signed requests.
	defaultReplayWindow = 2 * time.Minute

	// maxFaucetAmount bounds a single dev faucet grant.
	maxFaucetAmount = 1_000_000_000_000
)

// Bank is the part of the value-transfer collaborator the API reads and, in
// dev mode, funds.
type Bank interface {
	Balance(ctx context.Context, acct transfer.Account) (uint64, error)
	Fund(ctx context.Context, acct transfer.Account, amount uint64) error
}

// Config holds the HTTP surface settings.
type Config struct {
	Addr         string           // Addr is the TCP listen address
	ReplayWindow time.Duration    // ReplayWindow is the accepted timestamp skew
	RateLimit    float64          // RateLimit is requests per second per signer; 0 disables
	RateBurst    int              // RateBurst is the bucket size
	Faucet       bool             // Faucet enables POST /faucet
	Now          func() time.Time // Now overrides the clock used for freshness
}

// Server is the HTTP API server.
type Server struct {
	cfg     Config         // cfg is the validated configuration
	ledger  *ledger.Ledger // ledger serves every vault operation
	bank    Bank           // bank serves balances and the faucet
	seen    *dedup.Window  // seen rejects replayed signatures
	limits  *limiters      // limits throttles callers
	started time.Time      // started is the construction time
	handler http.Handler   // handler is the routed mux with middleware
}

// New creates an API server. Call Close to release the replay guard.
func New(cfg Config, l *ledger.Ledger, bank Bank) *Server {
	if cfg.ReplayWindow <= 0 {
		cfg.ReplayWindow = defaultReplayWindow
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:     cfg,
		ledger:  l,
		bank:    bank,
		seen:    dedup.NewWithClock(2*cfg.ReplayWindow, cfg.Now),
		limits:  newLimiters(cfg.RateLimit, cfg.RateBurst),
		started: cfg.Now(),
	}

	s.handler = s.withRequestID(s.routes())

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on cfg.Addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s:\n%w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("http api started", "addr", ln.Addr().String(), "faucet", s.cfg.Faucet)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve:\n%w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	<-errc

	return err
}

// Close releases background resources.
func (s *Server) Close() {
	s.seen.Close()
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /balances/{owner}/{asset}", s.handleBalance)

	mux.HandleFunc("GET /vaults", s.handleListVaults)
	mux.HandleFunc("GET /vaults/{asset}", s.handleGetVault)
	mux.HandleFunc("GET /vaults/{asset}/whitelist", s.handleGetWhitelist)
	mux.HandleFunc("GET /vaults/{asset}/withdrawals", s.handleListWithdrawals)
	mux.HandleFunc("GET /vaults/{asset}/withdrawals/{user}/{epoch}", s.handleGetWithdrawal)
	mux.HandleFunc("GET /vaults/{asset}/events", s.handleEvents)
	mux.HandleFunc("GET /vaults/{asset}/preview/deposit", s.handlePreviewDeposit)
	mux.HandleFunc("GET /vaults/{asset}/preview/redeem", s.handlePreviewRedeem)
	mux.HandleFunc("GET /vaults/{asset}/price", s.handlePrice)
	mux.HandleFunc("GET /vaults/{asset}/solvency", s.handleSolvency)

	mux.Handle("POST /vaults", s.signed(s.handleCreateVault))
	mux.Handle("POST /vaults/{asset}/deposit", s.signed(s.handleDeposit))
	mux.Handle("POST /vaults/{asset}/withdrawals", s.signed(s.handleRequestWithdrawal))
	mux.Handle("POST /vaults/{asset}/withdrawals/{epoch}/process", s.signed(s.handleProcessWithdrawal))
	mux.Handle("POST /vaults/{asset}/epoch", s.signed(s.handleAdvanceEpoch))
	mux.Handle("POST /vaults/{asset}/exposure", s.signed(s.handleRecordExposure))
	mux.Handle("POST /vaults/{asset}/premium", s.signed(s.handleCollectPremium))
	mux.Handle("POST /vaults/{asset}/settlements", s.signed(s.handlePaySettlement))
	mux.Handle("POST /vaults/{asset}/whitelist", s.signed(s.handleAddMember))
	mux.Handle("POST /vaults/{asset}/whitelist/remove", s.signed(s.handleRemoveMember))
	mux.Handle("POST /vaults/{asset}/pause", s.signed(s.handleSetPaused))
	mux.Handle("POST /vaults/{asset}/params", s.signed(s.handleQueueParams))
	mux.Handle("POST /vaults/{asset}/params/execute", s.signed(s.handleExecuteParams))
	mux.Handle("POST /vaults/{asset}/params/cancel", s.signed(s.handleCancelParams))
	mux.Handle("POST /vaults/{asset}/min-epoch-duration", s.signed(s.handleSetMinEpochDuration))
	mux.Handle("POST /vaults/{asset}/reconcile", s.signed(s.handleReconcile))

	if s.cfg.Faucet {
		mux.Handle("POST /faucet", s.signed(s.handleFaucet))
	}

	return mux
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestID tags every request with a uuid, echoed in the response and
// attached to the request log line.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			logger.Timed(start),
		)
	})
}

// rejected reports whether status is a client-side refusal. Server errors
// are kept in the replay guard since their effects are unknown.
func rejected(status int) bool {
	return status >= 400 && status < 500
}

// signedHandler runs after authentication with the verified caller and body.
type signedHandler func(w http.ResponseWriter, r *http.Request, caller string, body []byte)

// signed verifies the signature, freshness, rate limit and replay guard in
// that order before calling next.
func (s *Server) signed(next signedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "failed to read body")
			return
		}

		if len(body) > maxBodySize {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}

		caller, sig, err := verify(r.Method, r.URL.Path, r.Header.Get(HeaderSigner), r.Header.Get(HeaderSignature), body)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		now := s.cfg.Now()

		if err := checkFreshness(body, now, s.cfg.ReplayWindow); err != nil {
			writeAuthError(w, err)
			return
		}

		if !s.limits.allow(caller, now) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		dup, release, err := s.seen.Claim(r.Context(), sig)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "request_in_flight", "identical request still in flight")
			return
		}

		if dup {
			writeError(w, http.StatusConflict, "replayed_request", "request already processed")
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r, caller, body)

		// A rejected request changed nothing, so the caller may resend it.
		release(!rejected(rec.status))
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	var ae *authError
	if errors.As(err, &ae) {
		writeError(w, ae.status, ae.code, ae.msg)
		return
	}

	writeError(w, http.StatusBadRequest, "bad_request", err.Error())
}

// statusFor maps a ledger error kind to an HTTP status.
func statusFor(kind ledger.Kind) int {
	switch kind {
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindSafetyCap, ledger.KindArithmetic, ledger.KindTransfer:
		return http.StatusUnprocessableEntity
	case ledger.KindState, ledger.KindTimelock:
		return http.StatusConflict
	case ledger.KindAuthorization:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeLedgerError reports a ledger failure. Unclassified errors are logged
// and hidden from the caller.
func writeLedgerError(w http.ResponseWriter, err error) {
	kind := ledger.KindOf(err)
	if kind == ledger.KindUnknown {
		logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	writeError(w, statusFor(kind), ledger.CodeOf(err), err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	vaults, err := s.ledger.Vaults()
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Vaults:        len(vaults),
		UptimeSeconds: int64(s.cfg.Now().Sub(s.started) / time.Second),
		Faucet:        s.cfg.Faucet,
	})
}
