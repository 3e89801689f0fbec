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

// InterbankTransferRequest is the payload sent to the partner bank
type InterbankTransferRequest struct {
	OriginBank             string          `json:"origin_bank"`
	OriginAccountID        string          `json:"origin_account_id"`
	DestinationBank        string          `json:"destination_bank"`
	DestinationPhoneNumber string          `json:"destination_phone_number"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	TransactionID          string          `json:"transaction_id"`
	Description            string          `json:"description,omitempty"`
}

// InterbankAcceptance is the partner bank's success response
type InterbankAcceptance struct {
	Status              string `json:"status"`
	RemoteTransactionID string `json:"remote_transaction_id"`
}

// BankGateway sends transfers to the external bank party
type BankGateway interface {
	Transfer(ctx context.Context, req *InterbankTransferRequest) (*InterbankAcceptance, error)
}

// InterbankClient talks to the external bank simulator using the
// shared-secret header contract.
type InterbankClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewInterbankClient creates an interbank client.
func NewInterbankClient(logger *slog.Logger, cfg *config.CollaboratorsConfig) *InterbankClient {
	return &InterbankClient{
		baseURL:    cfg.InterbankURL,
		apiKey:     cfg.InterbankAPIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Transfer submits a transfer to the partner bank. Structured rejections
// (limit exceeded, unknown or blocked destination) come back as
// *RejectionError; transport failures as ErrUnavailable.
func (c *InterbankClient) Transfer(ctx context.Context, transfer *InterbankTransferRequest) (*InterbankAcceptance, error) {
	payload, err := json.Marshal(transfer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interbank request: %w", err)
	}

	endpoint := c.baseURL + "/transfers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build interbank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Interbank service unreachable", "error", err)
		return nil, fmt.Errorf("interbank transfer failed: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var acceptance InterbankAcceptance
		if err := json.NewDecoder(resp.Body).Decode(&acceptance); err != nil {
			return nil, fmt.Errorf("failed to decode interbank acceptance: %w", err)
		}
		return &acceptance, nil
	}

	var rejection struct {
		Detail struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		} `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil || rejection.Detail.ErrorCode == "" {
		c.logger.Error("Interbank service returned unparseable rejection", "status", resp.StatusCode)
		return nil, fmt.Errorf("interbank transfer failed with status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	c.logger.Warn("Interbank transfer rejected",
		"status", resp.StatusCode,
		"code", rejection.Detail.ErrorCode,
		"transaction_id", transfer.TransactionID,
	)

	return nil, &RejectionError{
		StatusCode: resp.StatusCode,
		Code:       rejection.Detail.ErrorCode,
		Detail:     rejection.Detail.Message,
	}
}

var _ BankGateway = (*InterbankClient)(nil)
