// ABOUTME: Mute-status lookup used before surfacing message notifications
// ABOUTME: Provides the Checker interface, a func adapter, and an HTTP client

package mute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Checker reports whether a sender is muted for the current user.
// Callers treat errors as "not muted".
type Checker interface {
	IsMuted(ctx context.Context, senderSessionID string) (bool, error)
}

// Func adapts a function to the Checker interface.
type Func func(ctx context.Context, senderSessionID string) (bool, error)

// IsMuted calls f.
func (f Func) IsMuted(ctx context.Context, senderSessionID string) (bool, error) {
	return f(ctx, senderSessionID)
}

// Never is a Checker that reports every sender as not muted.
var Never Checker = Func(func(context.Context, string) (bool, error) { return false, nil })

// ErrUnexpectedStatus is returned when the mute endpoint answers with a non-2xx, non-404 status.
var ErrUnexpectedStatus = errors.New("unexpected mute lookup status")

// HTTPChecker looks up mute status over HTTP:
//
//	GET {baseURL}/sessions/{viewer}/mutes/{sender}  ->  {"muted": true}
//
// A 404 means the sender is not muted.
type HTTPChecker struct {
	baseURL string
	viewer  string
	token   string
	client  *http.Client
}

// NewHTTPChecker creates a checker for the given viewer session.
// A nil client uses a client with a 10s timeout.
func NewHTTPChecker(baseURL, viewerSessionID, token string, client *http.Client) *HTTPChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		viewer:  viewerSessionID,
		token:   token,
		client:  client,
	}
}

type muteResponse struct {
	Muted bool `json:"muted"`
}

// IsMuted implements Checker.
func (c *HTTPChecker) IsMuted(ctx context.Context, senderSessionID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/sessions/%s/mutes/%s",
		c.baseURL, url.PathEscape(c.viewer), url.PathEscape(senderSessionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("mute lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body muteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decoding mute response: %w", err)
	}
	return body.Muted, nil
}
