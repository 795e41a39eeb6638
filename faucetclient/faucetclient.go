// Package faucetclient requests testnet funding from the Dash
// testnet faucet, solving its proof-of-work challenge when the
// faucet's status response demands one.
//
// HTTP plumbing follows the same Config/Client shape as
// insightclient/islockclient, which in turn is grounded on
// lightweight-wallet/chain/mempool/client.go's Config pattern.
package faucetclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/dashnet"
)

// RequestTimeout is the fixed client-side deadline every faucet
// request carries, per §4.11.
const RequestTimeout = 30 * time.Second

// Config holds configuration for a faucet client.
type Config struct {
	BaseURL string
}

// DefaultConfig builds a Config from net's faucet URL. Callers should
// check net.FaucetBaseURL != "" before using this client — mainnet has
// no faucet.
func DefaultConfig(net dashnet.Params) Config {
	return Config{BaseURL: net.FaucetBaseURL}
}

// Client talks to the testnet faucet.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Client from cfg.
func New(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

// StatusResponse is the shape of GET /api/status.
type StatusResponse struct {
	Status       string `json:"status"`
	CapEndpoint  string `json:"capEndpoint,omitempty"`
	Challenge    string `json:"challenge,omitempty"`
	Difficulty   int    `json:"difficulty,omitempty"`
}

// FaucetResponse is the shape of a successful POST /api/core-faucet.
type FaucetResponse struct {
	Txid    string `json:"txid"`
	Amount  int64  `json:"amount"`
	Address string `json:"address"`
}

// Status fetches the faucet's current status, which tells the caller
// whether a proof-of-work challenge (capEndpoint) is required before
// requesting funds.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SolveChallenge brute-forces a nonce such that
// sha256(challenge + nonce) has at least difficulty leading zero
// bits, then submits it to capEndpoint and returns the resulting
// token. This is the PoW gate described in §4.11 — the faucet's exact
// algorithm is SDK-external, so this implements the conventional
// hashcash-style leading-zero-bits check the "cap" family of
// PoW-captcha widgets uses.
func (c *Client) SolveChallenge(ctx context.Context, capEndpoint, challenge string, difficulty int) (string, error) {
	log.Debugf("solving faucet pow challenge at difficulty %d", difficulty)
	nonce := solvePow(challenge, difficulty)
	log.Infof("faucet pow solved: nonce %d", nonce)

	body, err := json.Marshal(map[string]interface{}{
		"challenge": challenge,
		"nonce":     nonce,
	})
	if err != nil {
		return "", bridgeerrors.NewCodecError("faucet-pow-marshal", err)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, capEndpoint, body, &resp); err != nil {
		return "", err
	}

	return resp.Token, nil
}

func solvePow(challenge string, difficulty int) uint64 {
	requiredZeroBits := difficulty
	var nonce uint64
	for {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], nonce)

		h := sha256.Sum256(append([]byte(challenge), buf[:]...))
		if leadingZeroBits(h[:]) >= requiredZeroBits {
			return nonce
		}
		nonce++
	}
}

func leadingZeroBits(h []byte) int {
	count := 0
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		for i := 7; i >= 0; i-- {
			if b&(1<<uint(i)) != 0 {
				return count
			}
			count++
		}
	}
	return count
}

// RequestFunds requests amount duffs be sent to address, optionally
// carrying a PoW token obtained via SolveChallenge. On HTTP 429 it
// extracts Retry-After (header or body) and returns bridgeerrors.RateLimit.
func (c *Client) RequestFunds(ctx context.Context, address string, amount int64, capToken string) (*FaucetResponse, error) {
	payload := map[string]interface{}{
		"address": address,
		"amount":  amount,
	}
	if capToken != "" {
		payload["capToken"] = capToken
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, bridgeerrors.NewCodecError("faucet-request-marshal", err)
	}

	var resp FaucetResponse
	if err := c.doJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/api/core-faucet", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out interface{}) error {
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
		if timeoutErr, ok := err.(interface{ Timeout() bool }); ok && timeoutErr.Timeout() {
			log.Warnf("faucet request to %s timed out", url)
			return &bridgeerrors.RequestTimedOut{Op: url}
		}
		if ctx.Err() != nil {
			log.Warnf("faucet request to %s timed out", url)
			return &bridgeerrors.RequestTimedOut{Op: url}
		}
		return &bridgeerrors.NetworkError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &bridgeerrors.NetworkError{Status: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := extractRetryAfter(resp, respBody)
		log.Warnf("faucet rate limited, retry after %ds", retryAfter)
		return &bridgeerrors.RateLimit{RetryAfter: retryAfter}
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
		return bridgeerrors.NewCodecError("faucet-decode-response", err)
	}
	return nil
}

func extractRetryAfter(resp *http.Response, body []byte) int {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
			return n
		}
	}

	var parsed struct {
		RetryAfter int `json:"retryAfter"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.RetryAfter > 0 {
		return parsed.RetryAfter
	}

	return 0
}
