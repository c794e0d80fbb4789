package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"EpochVault/internal/api"
)

// APIError is a non-2xx reply from the node.
type APIError struct {
	Status  int    // Status is the HTTP status code
	Code    string // Code is the stable error code
	Message string // Message is the server's description
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// CodeOf returns the API error code in err, or "".
func CodeOf(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code
	}

	return ""
}

// segments joins escaped path parts. The unescaped form is what gets signed.
func segments(parts ...string) (raw, escaped string) {
	var r, e strings.Builder
	for _, p := range parts {
		r.WriteString("/" + p)
		e.WriteString("/" + url.PathEscape(p))
	}

	return r.String(), e.String()
}

// get performs a GET and decodes the JSON reply into result.
func (c *Client) get(ctx context.Context, escapedPath string, query url.Values, result any) error {
	u := c.baseURL + escapedPath
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request:\n%w", err)
	}

	return c.do(req, result)
}

// post stamps, signs and sends body, decoding the JSON reply into result.
func (c *Client) post(ctx context.Context, rawPath, escapedPath string, body api.Stamper, result any) error {
	if c.key == nil {
		return fmt.Errorf("client has no signing key")
	}

	body.Stamp(c.now().Unix())
	body.SetNonce(uuid.NewString())

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body:\n%w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+escapedPath, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request:\n%w", err)
	}

	digest := api.Digest(http.MethodPost, rawPath, data)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderSigner, c.id)
	req.Header.Set(api.HeaderSignature, hex.EncodeToString(ed25519.Sign(c.key, digest[:])))

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s:\n%w", req.Method, req.URL.Path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return &APIError{Status: resp.StatusCode, Code: "unknown", Message: http.StatusText(resp.StatusCode)}
		}

		return &APIError{Status: resp.StatusCode, Code: er.Code, Message: er.Error}
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s reply:\n%w", req.URL.Path, err)
	}

	return nil
}
