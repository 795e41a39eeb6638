// Package insightclient talks to a Dash Insight-compatible block
// explorer API: UTXO listing, transaction broadcast, and confirmation
// status, plus the deposit-detection polling loop the bridge's
// awaiting_deposit/detecting_deposit state rests on.
//
// Config/Client shape and rate-limited HTTP plumbing are grounded on
// lightweight-wallet/chain/mempool/client.go, adapted from
// mempool.space's REST surface to Insight's.
package insightclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/dashnet"
)

// Config holds configuration for an Insight API client.
type Config struct {
	// BaseURL is the Insight API base URL, e.g.
	// https://insight.dash.org/insight-api.
	BaseURL string

	// RateLimit is the number of requests per second allowed.
	RateLimit int

	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for net, matching §6's
// configuration table.
func DefaultConfig(net dashnet.Params) Config {
	return Config{
		BaseURL:   net.InsightBaseURL,
		RateLimit: 10,
		Timeout:   30 * time.Second,
	}
}

// Client is a rate-limited Insight API client.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// New constructs a Client from cfg.
func New(cfg Config) *Client {
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
	}
}

// UTXO is one entry of GET /addr/{address}/utxo.
type UTXO struct {
	Txid          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Satoshis      int64  `json:"satoshis"`
	ScriptPubKey  string `json:"scriptPubKey"`
	Confirmations int    `json:"confirmations"`
}

type broadcastResponse struct {
	Txid string `json:"txid"`
}

// TransactionStatus is the response shape of GET /tx/{txid}.
type TransactionStatus struct {
	Txid          string `json:"txid"`
	Confirmations int    `json:"confirmations"`
	Txlock        bool   `json:"txlock"`
}

// ListUTXO fetches the UTXO set for address.
func (c *Client) ListUTXO(ctx context.Context, address string) ([]UTXO, error) {
	var utxos []UTXO
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/addr/%s/utxo", address), nil, &utxos)
	return utxos, err
}

// Broadcast submits rawTxHex to the network, returning the resulting
// txid.
func (c *Client) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	body, err := json.Marshal(map[string]string{"rawtx": rawTxHex})
	if err != nil {
		return "", bridgeerrors.NewCodecError("insight-broadcast-marshal", err)
	}

	var resp broadcastResponse
	if err := c.doRequest(ctx, http.MethodPost, "/tx/send", body, &resp); err != nil {
		return "", err
	}
	return resp.Txid, nil
}

// GetTransactionStatus fetches the confirmation/islock status of txid.
func (c *Client) GetTransactionStatus(ctx context.Context, txid string) (*TransactionStatus, error) {
	var status TransactionStatus
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/tx/%s", txid), nil, &status)
	return &status, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return &bridgeerrors.NetworkError{Message: "rate limiter wait: " + err.Error(), Err: err}
	}

	url := c.cfg.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return &bridgeerrors.NetworkError{Message: err.Error(), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &bridgeerrors.NetworkError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &bridgeerrors.NetworkError{Status: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(respBody)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return &bridgeerrors.NetworkError{Status: resp.StatusCode, Message: excerpt}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return bridgeerrors.NewCodecError("insight-decode-response", err)
	}

	return nil
}

// WaitForUTXOResult is the outcome of WaitForUTXO.
type WaitForUTXOResult struct {
	UTXO        *UTXO
	TotalAmount int64
	TimedOut    bool
}

// ProgressFunc is invoked on every poll of WaitForUTXO with the
// remaining time budget and the current observed total.
type ProgressFunc func(remainingMs int64, currentTotal int64)

// WaitForUTXO polls ListUTXO(address) every pollInterval until the
// aggregate observed value reaches minValue or timeout elapses.
//
// On success, it selects the largest single UTXO >= minValue if one
// exists, else the largest UTXO overall, and returns it alongside the
// total observed amount. Per-poll network errors are logged through
// this package's logger and do not abort the wait; only the deadline
// (or ctx) does. On timeout, one final list
// is attempted and its result folded in regardless of its own success.
func (c *Client) WaitForUTXO(ctx context.Context, address string, minValue int64, timeout, pollInterval time.Duration, onProgress ProgressFunc) (*WaitForUTXOResult, error) {
	deadline := time.Now().Add(timeout)
	log.Debugf("waiting for utxo on %s: need %d duffs, timeout %s", address, minValue, timeout)

	for {
		utxos, err := c.ListUTXO(ctx, address)
		if err != nil {
			log.Warnf("list utxo for %s failed, will keep polling: %v", address, err)
		} else if result, ok := selectUTXO(utxos, minValue); ok {
			log.Infof("deposit detected on %s: %d duffs", address, result.TotalAmount)
			return result, nil
		}

		remaining := time.Until(deadline)
		if onProgress != nil {
			total := int64(0)
			for _, u := range utxos {
				total += u.Satoshis
			}
			onProgress(remaining.Milliseconds(), total)
		}

		if remaining <= 0 {
			utxos, _ := c.ListUTXO(ctx, address)
			total := int64(0)
			for _, u := range utxos {
				total += u.Satoshis
			}
			log.Warnf("deposit wait on %s timed out, total seen: %d duffs", address, total)
			return &WaitForUTXOResult{UTXO: nil, TotalAmount: total, TimedOut: true}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(minDuration(pollInterval, remaining)):
		}
	}
}

func selectUTXO(utxos []UTXO, minValue int64) (*WaitForUTXOResult, bool) {
	total := int64(0)
	var largestOverall *UTXO
	var largestAtOrAbove *UTXO

	for i := range utxos {
		u := &utxos[i]
		total += u.Satoshis

		if largestOverall == nil || u.Satoshis > largestOverall.Satoshis {
			largestOverall = u
		}
		if u.Satoshis >= minValue && (largestAtOrAbove == nil || u.Satoshis > largestAtOrAbove.Satoshis) {
			largestAtOrAbove = u
		}
	}

	if total < minValue {
		return nil, false
	}

	selected := largestAtOrAbove
	if selected == nil {
		selected = largestOverall
	}

	return &WaitForUTXOResult{UTXO: selected, TotalAmount: total, TimedOut: false}, true
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
