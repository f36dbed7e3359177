// Package smt implements domain.PortalClient against the Smart Meter Texas
// style metering-portal API: authenticate with the customer's credentials,
// then fetch the monthly usage summary with the session token.
//
// Credentials exist only for the lifetime of one FetchUsage call. They are
// never written to a log line, a metric label, or any store.
package smt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/powertothepeople/usage-engine/internal/domain"
)

// Client talks to the metering portal over HTTPS.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a portal client. The timeout bounds each HTTP call; a
// slow portal surfaces as an error, never a hang.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchUsage authenticates and retrieves the account's monthly usage
// summary. It fails closed: any error at either step is returned and no
// usage data is fabricated.
func (c *Client) FetchUsage(ctx context.Context, username, password string) (domain.PortalUsage, error) {
	token, err := c.authenticate(ctx, username, password)
	if err != nil {
		return domain.PortalUsage{}, err
	}
	return c.fetchSummary(ctx, token)
}

func (c *Client) authenticate(ctx context.Context, username, password string) (string, error) {
	payload, err := json.Marshal(authRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("portal auth request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &domain.AuthError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("portal auth error: status %d: %s", resp.StatusCode, body)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if auth.Token == "" {
		return "", fmt.Errorf("portal auth response carried no token")
	}
	return auth.Token, nil
}

func (c *Client) fetchSummary(ctx context.Context, token string) (domain.PortalUsage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/usage/monthly", nil)
	if err != nil {
		return domain.PortalUsage{}, fmt.Errorf("create usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PortalUsage{}, fmt.Errorf("portal usage request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Token expired between calls; treat the same as a login failure.
		return domain.PortalUsage{}, &domain.AuthError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PortalUsage{}, fmt.Errorf("portal usage error: status %d: %s", resp.StatusCode, body)
	}

	var summary usageResponse
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return domain.PortalUsage{}, fmt.Errorf("decode usage response: %w", err)
	}

	usage := domain.PortalUsage{
		AnnualKWh:   summary.AnnualKWh,
		ESIID:       summary.ESIID,
		IsEstimated: summary.IsEstimated,
		IsNewHome:   summary.IsNewHome,
	}
	for _, m := range summary.Monthly {
		usage.Monthly = append(usage.Monthly, domain.MonthlyUsage{
			Year:  m.Year,
			Month: m.Month,
			KWh:   m.KWh,
		})
	}

	c.logger.Debug("portal usage fetched", "months", len(usage.Monthly), "esiid_present", usage.ESIID != "")
	return usage, nil
}

// Portal API request/response types.

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

type usageResponse struct {
	ESIID       string         `json:"esiid"`
	AnnualKWh   float64        `json:"annualKwh"`
	IsEstimated bool           `json:"isEstimated"`
	IsNewHome   bool           `json:"isNewHome"`
	Monthly     []monthlyUsage `json:"monthlyUsage"`
}

type monthlyUsage struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	KWh   float64 `json:"kwh"`
}
