package chainclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignatureStatusDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "getSignatureStatuses" {
			t.Fatalf("unexpected method: %s", req.Method)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":[{"slot":42,"confirmationStatus":"finalized","err":null}]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	status, err := c.SignatureStatus(context.Background(), "sig123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Slot != 42 || status.ConfirmationStatus != "finalized" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestSignatureStatusPropagatesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"slot out of range"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.SignatureStatus(context.Background(), "sig123"); err == nil {
		t.Fatalf("expected error from rpc error response")
	}
}

func TestSignatureStatusErrorsOnEmptyValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":[null]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.SignatureStatus(context.Background(), "sig123"); err == nil {
		t.Fatalf("expected error for nil status entry")
	}
}

func TestClientRequiresEndpoint(t *testing.T) {
	c := New("", time.Second)
	if _, err := c.SignatureStatus(context.Background(), "sig123"); err == nil {
		t.Fatalf("expected error when no endpoint configured")
	}
}
