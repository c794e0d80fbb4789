// Package feed receives exposure reports from the external pricing agent over QUIC.
//
// Each bidirectional stream carries exactly one length-prefixed ExposureReport
// and is answered with one ExposureAck. The caller identity handed to the
// ledger is the hex public key from the agent's TLS certificate.
package feed

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"EpochVault/internal/dedup"
	"EpochVault/internal/ledger"
	"EpochVault/internal/logger"
)

const (
	// alpnProtocol is the ALPN identifier negotiated by listener and agent.
	alpnProtocol = "epochvault-feed/1"

	// defaultStreamTimeout bounds one report/ack exchange.
	defaultStreamTimeout = 10 * time.Second

	// defaultDedupTTL is how long identical reports are remembered.
	defaultDedupTTL = 5 * time.Minute

	// codeMalformed is the ack code for undecodable reports.
	codeMalformed = "malformed_report"

	// codeInFlight is acked when an identical report did not settle in time.
	codeInFlight = "report_in_flight"
)

// Recorder is the ledger operation the feed drives.
type Recorder interface {
	RecordNotionalExposure(ctx context.Context, caller, assetID string, notional, premium uint64) (ledger.Exposure, error)
}

// Config holds the listener configuration.
type Config struct {
	PrivateKey    ed25519.PrivateKey // PrivateKey is the listener's identity key
	ListenAddr    string             // ListenAddr is the UDP address to bind (e.g. ":7400")
	DedupTTL      time.Duration      // DedupTTL is how long duplicate reports are suppressed
	StreamTimeout time.Duration      // StreamTimeout bounds one exchange
}

// Server accepts agent connections and records their reports.
type Server struct {
	listenAddr    string        // listenAddr is the address to bind
	tlsConfig     *tls.Config   // tlsConfig carries the self-signed identity
	quicConfig    *quic.Config  // quicConfig holds idle and keep-alive timers
	streamTimeout time.Duration // streamTimeout bounds one exchange

	recorder Recorder      // recorder is the ledger
	seen     *dedup.Window // seen suppresses replayed reports

	listener *quic.Listener // listener is set by Start

	conns   map[*quic.Conn]struct{} // conns tracks open agent connections
	connsMu sync.Mutex              // connsMu protects conns

	ctx    context.Context    // ctx is canceled by Close
	cancel context.CancelFunc // cancel cancels ctx
	wg     sync.WaitGroup     // wg waits for connection goroutines
}

// NewServer validates cfg and prepares a listener. Call Start to bind it.
func NewServer(cfg Config, rec Recorder) (*Server, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	if rec == nil {
		return nil, fmt.Errorf("recorder is required")
	}

	tlsConf, err := tlsConfig(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("tls config:\n%w", err)
	}

	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}

	timeout := cfg.StreamTimeout
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		listenAddr:    cfg.ListenAddr,
		tlsConfig:     tlsConf,
		quicConfig:    newQUICConfig(),
		streamTimeout: timeout,
		recorder:      rec,
		seen:          dedup.New(ttl),
		conns:         make(map[*quic.Conn]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func newQUICConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}
}

// Start binds the listener and begins accepting agents.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.listenAddr, s.tlsConfig, s.quicConfig)
	if err != nil {
		return fmt.Errorf("listen:\n%w", err)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	logger.Info("feed listening", "addr", listener.Addr().String())

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Close stops accepting, drops every agent connection and waits for handlers.
func (s *Server) Close() error {
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for c := range s.conns {
		c.CloseWithError(0, "feed shutting down")
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	s.seen.Close()

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			return
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn authenticates the agent and serves its streams until it disconnects.
func (s *Server) serveConn(conn *quic.Conn) {
	defer s.wg.Done()

	identity, err := peerIdentity(conn.ConnectionState().TLS)
	if err != nil {
		logger.Warn("feed peer rejected", "remote", conn.RemoteAddr().String(), "error", err)
		conn.CloseWithError(1, "identity required")
		return
	}

	if !s.track(conn) {
		conn.CloseWithError(0, "feed shutting down")
		return
	}
	defer s.untrack(conn)

	logger.Debug("feed agent connected", "agent", identity, "remote", conn.RemoteAddr().String())

	var streams sync.WaitGroup
	defer streams.Wait()

	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			return
		}

		streams.Add(1)
		go func() {
			defer streams.Done()
			s.serveStream(identity, stream)
		}()
	}
}

func (s *Server) track(conn *quic.Conn) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}

	s.conns[conn] = struct{}{}

	return true
}

func (s *Server) untrack(conn *quic.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

// serveStream handles one report/ack exchange.
func (s *Server) serveStream(identity string, stream *quic.Stream) {
	defer stream.Close()

	stream.SetDeadline(time.Now().Add(s.streamTimeout))

	data, err := readFrame(stream)
	if err != nil {
		logger.Debug("feed read failed", "agent", identity, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.streamTimeout)
	defer cancel()

	ack := s.handle(ctx, identity, data)

	if err := writeFrame(stream, EncodeAck(ack)); err != nil {
		logger.Debug("feed write failed", "agent", identity, "error", err)
	}
}

// handle turns a raw report into an ack. It never returns an error: every
// failure is reported to the agent in the ack.
func (s *Server) handle(ctx context.Context, identity string, data []byte) Ack {
	report, err := DecodeReport(data)
	if err != nil {
		return Ack{Code: codeMalformed, Message: err.Error()}
	}

	// An identical report in flight holds the claim; this one waits for its
	// outcome and is only acked as a duplicate once the first was recorded.
	dup, release, err := s.seen.Claim(ctx, []byte(identity), data)
	if err != nil {
		return Ack{Code: codeInFlight, Message: "identical report still in flight"}
	}

	if dup {
		logger.Debug("feed duplicate report", "agent", identity, "asset", report.AssetID)
		return Ack{OK: true, Duplicate: true}
	}

	exp, err := s.recorder.RecordNotionalExposure(ctx, identity, report.AssetID, report.Notional, report.Premium)

	// Rejected reports are not remembered; a resend is evaluated again.
	release(err == nil)

	if err != nil {
		return Ack{Code: ledger.CodeOf(err), Message: err.Error()}
	}

	return Ack{
		OK:                   true,
		Epoch:                exp.Epoch,
		EpochNotionalExposed: exp.EpochNotionalExposed,
	}
}
