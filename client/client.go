// Package client is a signed HTTP client for a vault node.
package client

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// Client talks to one node with one identity.
type Client struct {
	baseURL string             // baseURL is the node's HTTP root without trailing slash
	key     ed25519.PrivateKey // key signs every mutation
	id      string             // id is the hex public key the node sees as caller
	http    *http.Client       // http performs requests
	now     func() time.Time   // now stamps request bodies
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the clock used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client for nodeAddr ("host:port" or a full http URL).
// key may be nil for read-only use.
func New(nodeAddr string, key ed25519.PrivateKey, opts ...Option) *Client {
	base := strings.TrimRight(nodeAddr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	c := &Client{
		baseURL: base,
		key:     key,
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}

	if key != nil {
		c.id = hex.EncodeToString(key.Public().(ed25519.PublicKey))
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Identity returns the caller identity this client signs as.
func (c *Client) Identity() string {
	return c.id
}
