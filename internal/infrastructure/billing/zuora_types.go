package billing

import (
	"github.com/zuorasync/backend/internal/domain/integration"
)

// tokenResponse is the OAuth client-credentials grant response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// zuoraObjectError is an entry of the object API error list
type zuoraObjectError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// errorEnvelope detects the top-level error list of object API responses
type errorEnvelope struct {
	Errors []zuoraObjectError `json:"Errors"`
}

// queryResponse is the envelope of object-query endpoints
type queryResponse[T any] struct {
	Data     []T    `json:"data"`
	NextPage string `json:"nextPage,omitempty"`
}

// catalogProduct is the catalog view of a product and its rate plans
type catalogProduct struct {
	ID               string                 `json:"id"`
	SKU              string                 `json:"sku"`
	Name             string                 `json:"name"`
	ProductRatePlans []integration.RatePlan `json:"productRatePlans"`
	Success          bool                   `json:"success"`
}

// deleteResponse is returned by object DELETE calls
type deleteResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

func firstReason(reasons []integration.Reason, fallback string) string {
	if len(reasons) > 0 && reasons[0].Message != "" {
		return reasons[0].Message
	}
	return fallback
}
