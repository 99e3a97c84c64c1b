// Package apiclient talks to the subscription API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cinemax-app/subscribe/pkg/api"
)

// TokenSource supplies the credential sent with every request.
type TokenSource interface {
	Token() string
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("api returned HTTP %d: %s", e.Code, e.Message)
}

// Client is an HTTP client for the subscription API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// New creates a client for baseURL. tokens may be nil.
func New(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger.With("component", "api-client"),
	}
}

// ListPlans fetches every available plan.
func (c *Client) ListPlans(ctx context.Context) ([]api.Plan, error) {
	var resp api.SubscriptionsResponse
	if err := c.do(ctx, http.MethodGet, "/subscriptions", nil, &resp); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return resp.Subscriptions, nil
}

// ListCards fetches the stored cards of userID.
func (c *Client) ListCards(ctx context.Context, userID string) ([]api.StoredCard, error) {
	var cards []api.StoredCard
	path := "/users/" + url.PathEscape(userID) + "/credit-cards"
	if err := c.do(ctx, http.MethodGet, path, nil, &cards); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// RegisterCard stores a new card for userID.
func (c *Client) RegisterCard(ctx context.Context, userID string, req api.RegisterCardRequest) (api.StoredCard, error) {
	var card api.StoredCard
	path := "/users/" + url.PathEscape(userID) + "/credit-cards"
	if err := c.do(ctx, http.MethodPost, path, req, &card); err != nil {
		return api.StoredCard{}, fmt.Errorf("register card: %w", err)
	}
	return card, nil
}

// SelectSubscription activates planType for userID. The returned token is
// empty when the API did not renew the credential.
func (c *Client) SelectSubscription(ctx context.Context, userID, planType string) (string, error) {
	var resp api.SelectSubscriptionResponse
	path := "/subscriptions/select-subscription/" + url.PathEscape(planType)
	if err := c.do(ctx, http.MethodPost, path, api.SelectSubscriptionRequest{UserID: userID}, &resp); err != nil {
		return "", fmt.Errorf("select subscription: %w", err)
	}
	return resp.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	// An empty 2xx body leaves out untouched.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
