package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/pixel-money/wallet-core/internal/config"
)

// IdentityResolver resolves phone numbers to user ids and back
type IdentityResolver interface {
	ResolvePhone(ctx context.Context, phone string) (int64, error)
	GetPhone(ctx context.Context, userID int64) (string, error)
}

// IdentityClient talks to the identity service
type IdentityClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewIdentityClient creates an identity service client.
func NewIdentityClient(logger *slog.Logger, cfg *config.CollaboratorsConfig) *IdentityClient {
	return &IdentityClient{
		baseURL:    cfg.IdentityURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// ResolvePhone returns the user id owning the phone number.
func (c *IdentityClient) ResolvePhone(ctx context.Context, phone string) (int64, error) {
	endpoint := fmt.Sprintf("%s/internal/users/by-phone/%s", c.baseURL, url.PathEscape(phone))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build identity request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Identity service unreachable", "error", err)
		return 0, fmt.Errorf("identity lookup failed: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			UserID int64 `json:"user_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return 0, fmt.Errorf("failed to decode identity response: %w", err)
		}
		return body.UserID, nil
	case http.StatusNotFound:
		return 0, ErrPhoneNotFound{Phone: phone}
	default:
		c.logger.Error("Identity service returned unexpected status", "status", resp.StatusCode)
		return 0, fmt.Errorf("identity lookup failed with status %d: %w", resp.StatusCode, ErrUnavailable)
	}
}

// GetPhone returns the phone number registered for a user.
func (c *IdentityClient) GetPhone(ctx context.Context, userID int64) (string, error) {
	endpoint := fmt.Sprintf("%s/internal/users/%d", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build identity request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Identity service unreachable", "error", err)
		return "", fmt.Errorf("profile lookup failed: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Identity service returned unexpected status", "status", resp.StatusCode, "user_id", userID)
		return "", fmt.Errorf("profile lookup failed with status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var body struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode profile response: %w", err)
	}

	return body.PhoneNumber, nil
}

var _ IdentityResolver = (*IdentityClient)(nil)
