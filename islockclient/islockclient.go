// Package islockclient polls a Dash JSON-RPC endpoint for InstantSend
// locks (islocks) over a broadcast transaction — the quorum-signed
// proof the bridge core needs before it can hand a PlatformDriver call
// an AssetLockProof.
//
// The request/response plumbing (rate-unlimited single JSON-RPC POST,
// context-bound HTTP client, status-code-to-NetworkError mapping)
// follows the same shape as insightclient's doRequest, generalized
// from Insight's REST calls to a single JSON-RPC method call.
package islockclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/codec"
	"github.com/thephez/dash-bridge/dashnet"
)

// Config holds configuration for an islock JSON-RPC client.
type Config struct {
	// RPCURL is the JSON-RPC endpoint serving getislocks.
	RPCURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// PollInterval is how often WaitForInstantSendLock polls.
	PollInterval time.Duration
}

// DefaultConfig returns sensible defaults for net, matching §4.9's
// 2-second poll interval.
func DefaultConfig(net dashnet.Params) Config {
	return Config{
		RPCURL:       net.IslockRPCURL,
		Timeout:      10 * time.Second,
		PollInterval: 2 * time.Second,
	}
}

// Client is a minimal JSON-RPC client for the getislocks method.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Client from cfg.
func New(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// IslockEntry is one entry of getislocks' result array.
type IslockEntry struct {
	Txid      string  `json:"txid"`
	Hex       string  `json:"hex"`
	Signature *string `json:"signature,omitempty"`
	CycleHash *string `json:"cycleHash,omitempty"`
}

type rpcResponse struct {
	Result []IslockEntry `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GetIslocks calls getislocks for the given txids, returning whatever
// entries the node currently knows about.
func (c *Client) GetIslocks(ctx context.Context, txids []string) ([]IslockEntry, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getislocks",
		Params:  []interface{}{txids},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, bridgeerrors.NewCodecError("islock-request-marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return nil, &bridgeerrors.NetworkError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &bridgeerrors.NetworkError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bridgeerrors.NetworkError{Status: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &bridgeerrors.NetworkError{Status: resp.StatusCode, Message: string(respBody)}
	}

	var parsed rpcResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, bridgeerrors.NewCodecError("islock-response-decode", err)
	}
	if parsed.Error != nil {
		return nil, bridgeerrors.NewSdkError(parsed.Error.Message, fmt.Errorf("getislocks rpc error"))
	}

	return parsed.Result, nil
}

// WaitForInstantSendLock polls GetIslocks every cfg.PollInterval until
// an entry for txid with a non-empty hex field appears, decoding and
// returning it. It fails with IslockTimeout if timeout elapses first.
func (c *Client) WaitForInstantSendLock(ctx context.Context, txid string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	deadline := time.Now().Add(timeout)
	start := time.Now()
	log.Debugf("waiting for instantsend lock on %s, timeout %s", txid, timeout)

	for {
		entries, err := c.GetIslocks(ctx, []string{txid})
		if err != nil {
			log.Warnf("getislocks for %s failed, will keep polling: %v", txid, err)
		} else {
			for _, e := range entries {
				if e.Txid == txid && e.Hex != "" {
					decoded, decodeErr := codec.DecodeHex(e.Hex)
					if decodeErr != nil {
						return nil, decodeErr
					}
					log.Infof("instantsend lock observed for %s", txid)
					return decoded, nil
				}
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Warnf("instantsend lock wait for %s timed out after %s", txid, time.Since(start))
			return nil, &bridgeerrors.IslockTimeout{Txid: txid, ElapsedMs: time.Since(start).Milliseconds()}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(minDuration(c.cfg.PollInterval, remaining)):
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
