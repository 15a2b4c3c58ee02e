package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/tokenlaunch/salecore/internal/config"
)

// CustodyClient moves tokens through an HTTP custody service.
// Tries providers in order, falling back to the next on network/server errors.
type CustodyClient struct {
	client       *http.Client
	providerURLs []string
	limiter      *rate.Limiter
}

// NewCustodyClient creates a client with ordered fallback providers and a
// dispatch rate limit.
func NewCustodyClient(client *http.Client, providerURLs []string, rps float64) *CustodyClient {
	slog.Info("custody client created",
		"providerCount", len(providerURLs),
		"providers", providerURLs,
		"rps", rps,
	)
	return &CustodyClient{
		client:       client,
		providerURLs: providerURLs,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type transferRequest struct {
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
	Note        string `json:"note"`
}

// Transfer dispatches a token transfer and returns the accepted amount.
// Tries each provider in order. Does NOT retry on 4xx (bad transfer) — the
// request itself is invalid and every provider would reject it.
func (c *CustodyClient) Transfer(ctx context.Context, destination string, amount uint64, note string) (Outcome, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Outcome{}, fmt.Errorf("%w: rate limiter: %s", config.ErrTransferFailed, err)
	}

	slog.Info("dispatching transfer",
		"destination", destination,
		"amount", amount,
		"note", note,
	)

	var lastErr error
	for i, baseURL := range c.providerURLs {
		out, err := c.transferToProvider(ctx, baseURL, destination, amount, note)
		if err == nil {
			slog.Info("transfer dispatched",
				"provider", baseURL,
				"destination", destination,
				"requested", amount,
				"accepted", out.Accepted,
			)
			return out, nil
		}

		lastErr = err

		if isBadTransferError(err) {
			slog.Error("transfer rejected (bad request)",
				"provider", baseURL,
				"error", err,
			)
			return Outcome{}, fmt.Errorf("%w: %s", config.ErrTransferFailed, err)
		}

		slog.Warn("transfer failed, trying next provider",
			"provider", baseURL,
			"providerIndex", i,
			"remaining", len(c.providerURLs)-i-1,
			"error", err,
		)
	}

	return Outcome{}, fmt.Errorf("%w: all providers failed: %s", config.ErrTransferFailed, lastErr)
}

func (c *CustodyClient) transferToProvider(ctx context.Context, baseURL, destination string, amount uint64, note string) (Outcome, error) {
	body, err := json.Marshal(transferRequest{Destination: destination, Amount: amount, Note: note})
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/transfer", bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("transfer request to %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("read transfer response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return Outcome{}, &badTransferError{message: strings.TrimSpace(string(respBody))}
	}
	if resp.StatusCode != http.StatusOK {
		return Outcome{}, fmt.Errorf("transfer HTTP %d from %s: %s", resp.StatusCode, baseURL, string(respBody))
	}

	var out Outcome
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Outcome{}, fmt.Errorf("parse transfer response from %s: %w", baseURL, err)
	}
	if out.Accepted > amount {
		return Outcome{}, fmt.Errorf("provider %s accepted %d > requested %d", baseURL, out.Accepted, amount)
	}

	return out, nil
}

// BalanceOf returns the custody balance held for an account.
func (c *CustodyClient) BalanceOf(ctx context.Context, holder string) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: rate limiter: %s", config.ErrTransferFailed, err)
	}

	var lastErr error
	for _, baseURL := range c.providerURLs {
		amount, err := c.balanceFromProvider(ctx, baseURL, holder)
		if err == nil {
			return amount, nil
		}
		lastErr = err
		slog.Warn("balance query failed, trying next provider",
			"provider", baseURL,
			"holder", holder,
			"error", err,
		)
	}
	return 0, fmt.Errorf("%w: all providers failed: %s", config.ErrTransferFailed, lastErr)
}

func (c *CustodyClient) balanceFromProvider(ctx context.Context, baseURL, holder string) (uint64, error) {
	u := baseURL + "/balance?holder=" + url.QueryEscape(holder)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create balance request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("balance request to %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read balance response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("balance HTTP %d from %s: %s", resp.StatusCode, baseURL, string(body))
	}

	var payload struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("parse balance response from %s: %w", baseURL, err)
	}
	return payload.Amount, nil
}

// badTransferError represents a 4xx response — the transfer itself is invalid.
type badTransferError struct {
	message string
}

func (e *badTransferError) Error() string {
	return "bad transfer: " + e.message
}

func isBadTransferError(err error) bool {
	_, ok := err.(*badTransferError)
	return ok
}
