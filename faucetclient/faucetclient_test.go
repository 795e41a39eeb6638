package faucetclient

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thephez/dash-bridge/bridgeerrors"
)

func TestStatusNoChallenge(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(StatusResponse{Status: "ok"})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL})
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Empty(t, status.CapEndpoint)
}

func TestSolvePowMeetsDifficulty(t *testing.T) {
	t.Parallel()

	nonce := solvePow("test-challenge", 8)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)

	h := sha256.Sum256(append([]byte("test-challenge"), buf[:]...))
	require.GreaterOrEqual(t, leadingZeroBits(h[:]), 8)
}

func TestRequestFundsSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/core-faucet", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Xaddress", body["address"])
		_ = json.NewEncoder(w).Encode(FaucetResponse{Txid: "txid123", Amount: 100000, Address: "Xaddress"})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL})
	resp, err := client.RequestFunds(context.Background(), "Xaddress", 100000, "")
	require.NoError(t, err)
	require.Equal(t, "txid123", resp.Txid)
}

func TestRequestFundsRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL})
	_, err := client.RequestFunds(context.Background(), "Xaddress", 100000, "")
	require.Error(t, err)

	var rateLimit *bridgeerrors.RateLimit
	require.ErrorAs(t, err, &rateLimit)
	require.Equal(t, 42, rateLimit.RetryAfter)
}
