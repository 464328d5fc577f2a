/**
 * @description
 * Client for the bank transfer provider used to pay coaches. The provider
 * call carries a bounded timeout; a failure here is reported to the caller
 * and never rolls back the payout claim that already committed.
 */
package transferclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrTransferRejected = errors.New("transfer rejected by provider")

// Client is a client for the bank transfer API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new transfer client.
func NewClient(baseURL string, apiKey string) *Client {
	normalizedURL := strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL:    normalizedURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Transfer instructs the provider to wire amount (in cents) to the coach's
// registered bank account. The reference makes the instruction idempotent
// on the provider side; the returned id is the provider's own reference.
func (c *Client) Transfer(ctx context.Context, coachID uuid.UUID, amount int64, reference string) (string, error) {
	if coachID == uuid.Nil {
		return "", fmt.Errorf("coach ID is required")
	}
	if amount <= 0 {
		return "", fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("transfer API key is not configured")
	}

	payload := map[string]interface{}{
		"counterparty_id": coachID.String(),
		"amount":          amount,
		"currency":        "EUR",
		"reference":       reference,
		"reason":          "Coaching payout",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute transfer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", ErrTransferRejected
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("transfer provider returned status %d", resp.StatusCode)
	}

	var response struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to parse transfer response: %w", err)
	}

	return response.ID, nil
}
