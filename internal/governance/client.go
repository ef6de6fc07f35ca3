// Package governance talks to the community governance service that runs
// proposal votes. Only proposal creation, status and withdrawal are used.
package governance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type ProposalStatus string

const (
	StatusOpen     ProposalStatus = "open"
	StatusPassed   ProposalStatus = "passed"
	StatusRejected ProposalStatus = "rejected"
	StatusExpired  ProposalStatus = "expired"
)

// ErrNotConfigured is returned by every call when no base URL is set.
var ErrNotConfigured = errors.New("governance service not configured")

// ErrProposalNotFound is returned when the service does not know the id.
var ErrProposalNotFound = errors.New("proposal not found")

// Config holds governance service connection settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Proposal is what gets submitted for a vote.
type Proposal struct {
	CommunityID string `json:"community_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type createResponse struct {
	ID string `json:"id"`
}

// ProposalInfo is the service's view of an existing proposal.
type ProposalInfo struct {
	ID          string         `json:"id"`
	CommunityID string         `json:"community_id"`
	Status      ProposalStatus `json:"status"`
}

// Client calls the governance service over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// CreateProposal opens a vote and returns the proposal id.
func (c *Client) CreateProposal(ctx context.Context, p Proposal) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal proposal: %w", err)
	}

	var out createResponse
	if err := c.do(ctx, http.MethodPost, "/proposals", body, &out); err != nil {
		return "", fmt.Errorf("create proposal: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("create proposal: empty id in response")
	}
	return out.ID, nil
}

// GetProposal returns a proposal's community and current status.
func (c *Client) GetProposal(ctx context.Context, id string) (*ProposalInfo, error) {
	var out ProposalInfo
	if err := c.do(ctx, http.MethodGet, "/proposals/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return &out, nil
}

// DeleteProposal withdraws a proposal. A proposal that is already gone is
// not an error.
func (c *Client) DeleteProposal(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/proposals/"+url.PathEscape(id), nil, nil)
	if err != nil && !errors.Is(err, ErrProposalNotFound) {
		return fmt.Errorf("delete proposal: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrProposalNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
