package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zuorasync/backend/internal/domain/integration"
	"go.uber.org/zap"
)

const (
	signUpPath   = "/v1/sign-up"
	accountsPath = "/v1/accounts"
	ordersPath   = "/v1/orders"
)

// CreateAccount signs up a new billing account
func (c *ZuoraClient) CreateAccount(ctx context.Context, req integration.AccountSignup) (*integration.SignupResult, error) {
	var result integration.SignupResult
	if err := c.doRequest(ctx, http.MethodPost, signUpPath, signUpPath, req, &result); err != nil {
		return nil, fmt.Errorf("create account %s: %w", req.AccountData.AccountNumber, err)
	}
	if !result.Success {
		return nil, integration.NewRejectedError(http.MethodPost, signUpPath, firstReason(result.Reasons, "Failed to create account"))
	}
	c.logger.Info("Created billing account",
		zap.String("account_id", result.AccountID),
		zap.String("account_number", result.AccountNumber),
	)
	return &result, nil
}

// GetAccount looks up a billing account by account number
func (c *ZuoraClient) GetAccount(ctx context.Context, accountNumber string) (*integration.AccountSummary, error) {
	var result integration.AccountSummary
	path := accountsPath + "/" + url.PathEscape(accountNumber)
	if err := c.doRequest(ctx, http.MethodGet, path, accountsPath+"/{id}", nil, &result); err != nil {
		return nil, fmt.Errorf("get account %s: %w", accountNumber, err)
	}
	if !result.Success {
		return nil, integration.NewRejectedError(http.MethodGet, path, firstReason(result.Reasons, "Failed to get account"))
	}
	return &result, nil
}

// CreateOrder creates a billing order
func (c *ZuoraClient) CreateOrder(ctx context.Context, req integration.OrderRequest) (*integration.OrderResult, error) {
	var result integration.OrderResult
	if err := c.doRequest(ctx, http.MethodPost, ordersPath, ordersPath, req, &result); err != nil {
		return nil, fmt.Errorf("create order %s: %w", req.OrderNumber, err)
	}
	if !result.Success {
		return nil, integration.NewRejectedError(http.MethodPost, ordersPath, firstReason(result.Reasons, "Failed to create order"))
	}
	c.logger.Info("Created billing order", zap.String("order_number", result.OrderNumber))
	return &result, nil
}

var _ integration.BillingPlatform = (*ZuoraClient)(nil)
