package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/config"
)

// GroupLedger adjusts a member's internal balance within a group. The
// delta is signed: positive for contributions, negative for
// withdrawal-created debt.
type GroupLedger interface {
	AdjustMemberBalance(ctx context.Context, groupID, userID int64, delta decimal.Decimal) error
}

// GroupServiceClient talks to the group membership service
type GroupServiceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGroupServiceClient creates a group service client.
func NewGroupServiceClient(logger *slog.Logger, cfg *config.CollaboratorsConfig) *GroupServiceClient {
	return &GroupServiceClient{
		baseURL:    cfg.GroupServiceURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// AdjustMemberBalance applies a signed delta to the member's internal
// balance in the group.
func (c *GroupServiceClient) AdjustMemberBalance(ctx context.Context, groupID, userID int64, delta decimal.Decimal) error {
	payload, err := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"amount":  delta,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal member balance request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/internal/groups/%d/member_balance", c.baseURL, groupID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build member balance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Group service unreachable", "group_id", groupID, "error", err)
		return fmt.Errorf("member balance adjustment failed: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Group service rejected member balance adjustment",
			"group_id", groupID,
			"user_id", userID,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("member balance adjustment failed with status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	return nil
}

var _ GroupLedger = (*GroupServiceClient)(nil)
