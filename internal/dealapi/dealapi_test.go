package dealapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"context"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
)

func TestGetDealSnapshotDecodesAndValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deals/D-1" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"D-1","state":"FUNDED","deliveryBy":1000}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	snapshot, err := c.GetDealSnapshot(context.Background(), "D-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.State != domain.StateFunded || snapshot.DeliveryBy != 1000 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestGetDealSnapshotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.GetDealSnapshot(context.Background(), "D-missing"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestGetDealSnapshotRejectsInvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"","state":"FUNDED"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.GetDealSnapshot(context.Background(), "D-1"); err == nil {
		t.Fatalf("expected validation error for empty id")
	}
}

func TestPrepareFinalizeDecodesURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deals/D-1/prepare-finalize" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"approvalUrl":"https://approve","blinkUrl":"https://blink"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	res, err := c.PrepareFinalize(context.Background(), "D-1", domain.SuggestRelease)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ApprovalURL != "https://approve" || res.BlinkURL != "https://blink" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPrepareFinalizePropagatesNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.PrepareFinalize(context.Background(), "D-1", domain.SuggestRefund); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
