package commerce

// ctMoney is a commercetools centPrecision money value
type ctMoney struct {
	Type           string `json:"type"`
	CurrencyCode   string `json:"currencyCode"`
	CentAmount     int64  `json:"centAmount"`
	FractionDigits int    `json:"fractionDigits"`
}

type ctPrice struct {
	ID    string  `json:"id"`
	Value ctMoney `json:"value"`
}

// ctAttribute value decodes into bool, float64, string or map[string]any
type ctAttribute struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type ctVariant struct {
	ID         int           `json:"id"`
	SKU        string        `json:"sku"`
	Prices     []ctPrice     `json:"prices"`
	Attributes []ctAttribute `json:"attributes"`
}

type ctProductProjection struct {
	ID            string      `json:"id"`
	Version       int64       `json:"version"`
	MasterVariant ctVariant   `json:"masterVariant"`
	Variants      []ctVariant `json:"variants"`
}

type ctAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Country   string `json:"country"`
	State     string `json:"state"`
}

type ctCustomer struct {
	ID        string      `json:"id"`
	Version   int64       `json:"version"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Addresses []ctAddress `json:"addresses"`
}

type ctLineItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Variant   ctVariant `json:"variant"`
	Quantity  int64     `json:"quantity"`
}

type ctOrder struct {
	ID             string       `json:"id"`
	Version        int64        `json:"version"`
	OrderNumber    string       `json:"orderNumber"`
	CustomerID     string       `json:"customerId"`
	CustomerEmail  string       `json:"customerEmail"`
	BillingAddress *ctAddress   `json:"billingAddress"`
	LineItems      []ctLineItem `json:"lineItems"`
}

type ctPagedQuery[T any] struct {
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type ctUpdate struct {
	Version int64 `json:"version"`
	Actions []any `json:"actions"`
}

type ctSetOrderNumber struct {
	Action      string `json:"action"`
	OrderNumber string `json:"orderNumber"`
}

// Subscription is a commercetools change subscription
type Subscription struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Version int64  `json:"version"`
}

type ctDestination struct {
	Type      string `json:"type"`
	Topic     string `json:"topic"`
	ProjectID string `json:"projectId"`
}

type ctChangeSubscription struct {
	ResourceTypeID string `json:"resourceTypeId"`
}

type ctSubscriptionDraft struct {
	Key         string                 `json:"key"`
	Destination ctDestination          `json:"destination"`
	Messages    []any                  `json:"messages"`
	Changes     []ctChangeSubscription `json:"changes"`
}
