package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRejected is returned when the host adapter refuses a batch.
var ErrRejected = errors.New("wallet: batch rejected by host")

// HTTPWallet forwards batches to the ledger host adapter, which signs and
// submits them.
type HTTPWallet struct {
	endpoint string
	token    string
	client   *http.Client
}

// HTTPOption customises the HTTP wallet.
type HTTPOption func(*HTTPWallet)

// WithHTTPClient overrides the client used for submissions.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(w *HTTPWallet) { w.client = client }
}

// WithBearerToken authenticates submissions.
func WithBearerToken(token string) HTTPOption {
	return func(w *HTTPWallet) { w.token = strings.TrimSpace(token) }
}

// NewHTTPWallet targets the batch endpoint of a host adapter.
func NewHTTPWallet(endpoint string, opts ...HTTPOption) (*HTTPWallet, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("wallet: endpoint required")
	}
	w := &HTTPWallet{endpoint: endpoint, client: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

type submitRequest struct {
	Transfers []Transfer `json:"transfers"`
}

type submitResponse struct {
	TxHashes []string `json:"tx_hashes"`
	Error    string   `json:"error,omitempty"`
}

// Submit posts the batch. Any non-2xx response means nothing was scheduled.
func (w *HTTPWallet) Submit(ctx context.Context, batch []Transfer) ([]string, error) {
	body, err := json.Marshal(submitRequest{Transfers: batch})
	if err != nil {
		return nil, fmt.Errorf("wallet: encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wallet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet: submit: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("wallet: read response: %w", err)
	}
	var decoded submitResponse
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &decoded); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("wallet: decode response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(decoded.Error)
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	if len(decoded.TxHashes) != len(batch) {
		return nil, fmt.Errorf("wallet: host returned %d hashes for %d transfers", len(decoded.TxHashes), len(batch))
	}
	return decoded.TxHashes, nil
}
