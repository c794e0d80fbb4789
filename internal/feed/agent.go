package feed

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

// Agent is the pricing-agent side of the feed.
type Agent struct {
	conn   *quic.Conn  // conn is the QUIC connection to the listener
	closed atomic.Bool // closed is set by Close
}

// Dial connects to a feed listener, presenting key as the agent identity.
func Dial(ctx context.Context, addr string, key ed25519.PrivateKey) (*Agent, error) {
	tlsConf, err := tlsConfig(key)
	if err != nil {
		return nil, fmt.Errorf("tls config:\n%w", err)
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConf, newQUICConfig())
	if err != nil {
		return nil, fmt.Errorf("dial:\n%w", err)
	}

	return &Agent{conn: conn}, nil
}

// Report sends one exposure report and waits for the ack.
func (a *Agent) Report(ctx context.Context, r Report) (Ack, error) {
	data, err := a.roundTrip(ctx, EncodeReport(r))
	if err != nil {
		return Ack{}, err
	}

	return DecodeAck(data)
}

// roundTrip writes one frame on a fresh stream and reads the reply.
func (a *Agent) roundTrip(ctx context.Context, payload []byte) ([]byte, error) {
	if a.closed.Load() {
		return nil, fmt.Errorf("agent is closed")
	}

	stream, err := a.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultStreamTimeout)
	}
	stream.SetDeadline(deadline)

	if err := writeFrame(stream, payload); err != nil {
		return nil, fmt.Errorf("write report:\n%w", err)
	}

	resp, err := readFrame(stream)
	if err != nil {
		return nil, fmt.Errorf("read ack:\n%w", err)
	}

	return resp, nil
}

// Close tears down the connection.
func (a *Agent) Close() error {
	if a.closed.Swap(true) {
		return nil
	}

	return a.conn.CloseWithError(0, "agent closed")
}
