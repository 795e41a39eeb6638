package islockclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thephez/dash-bridge/bridgeerrors"
)

func TestGetIslocksParsesResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(rpcResponse{
			Result: []IslockEntry{{Txid: "abc", Hex: "deadbeef"}},
		})
	}))
	defer srv.Close()

	client := New(Config{RPCURL: srv.URL, Timeout: time.Second})
	entries, err := client.GetIslocks(context.Background(), []string{"abc"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "deadbeef", entries[0].Hex)
}

func TestWaitForInstantSendLockSucceedsAfterPolling(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			_ = json.NewEncoder(w).Encode(rpcResponse{Result: nil})
			return
		}
		_ = json.NewEncoder(w).Encode(rpcResponse{
			Result: []IslockEntry{{Txid: "the-txid", Hex: "cafebabe"}},
		})
	}))
	defer srv.Close()

	client := New(Config{RPCURL: srv.URL, Timeout: time.Second, PollInterval: 5 * time.Millisecond})
	lock, err := client.WaitForInstantSendLock(context.Background(), "the-txid", time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte{0xca, 0xfe, 0xba, 0xbe}, lock)
}

func TestWaitForInstantSendLockTimesOut(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rpcResponse{Result: nil})
	}))
	defer srv.Close()

	client := New(Config{RPCURL: srv.URL, Timeout: time.Second, PollInterval: 5 * time.Millisecond})
	_, err := client.WaitForInstantSendLock(context.Background(), "the-txid", 30*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *bridgeerrors.IslockTimeout
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, "the-txid", timeoutErr.Txid)
}
