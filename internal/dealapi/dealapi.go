// Package dealapi is the HTTP implementation of ports.API: it fetches
// deal snapshots and prepares (never submits) finalize actions against
// the upstream escrow program's action server.
package dealapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (trailing slash optional).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

var _ ports.API = (*Client)(nil)

func (c *Client) GetDealSnapshot(ctx context.Context, dealID string) (domain.DealSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/deals/"+dealID, nil)
	if err != nil {
		return domain.DealSnapshot{}, fmt.Errorf("dealapi: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.DealSnapshot{}, fmt.Errorf("dealapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.DealSnapshot{}, fmt.Errorf("dealapi: deal %s not found", dealID)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.DealSnapshot{}, fmt.Errorf("dealapi: unexpected status %d", resp.StatusCode)
	}

	var snapshot domain.DealSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return domain.DealSnapshot{}, fmt.Errorf("dealapi: decode snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return domain.DealSnapshot{}, fmt.Errorf("dealapi: invalid snapshot: %w", err)
	}
	return snapshot, nil
}

type prepareRequest struct {
	DealID string `json:"dealId"`
	Action string `json:"action"`
}

type prepareResponse struct {
	ApprovalURL string `json:"approvalUrl"`
	BlinkURL    string `json:"blinkUrl"`
}

// PrepareFinalize is idempotent per (dealId, action) on the server side;
// this client issues one POST per call and relies on that contract.
func (c *Client) PrepareFinalize(ctx context.Context, dealID string, action domain.Suggestion) (ports.PrepareResult, error) {
	body, err := json.Marshal(prepareRequest{DealID: dealID, Action: string(action)})
	if err != nil {
		return ports.PrepareResult{}, fmt.Errorf("dealapi: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deals/"+dealID+"/prepare-finalize", bytes.NewReader(body))
	if err != nil {
		return ports.PrepareResult{}, fmt.Errorf("dealapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.PrepareResult{}, fmt.Errorf("dealapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.PrepareResult{}, fmt.Errorf("dealapi: prepare-finalize responded %d", resp.StatusCode)
	}

	var out prepareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.PrepareResult{}, fmt.Errorf("dealapi: decode response: %w", err)
	}
	return ports.PrepareResult{ApprovalURL: out.ApprovalURL, BlinkURL: out.BlinkURL}, nil
}
