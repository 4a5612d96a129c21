package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zuorasync/backend/internal/domain/integration"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const maxCommercetoolsResponseSize = 10 * 1024 * 1024

// CommercetoolsAdapter reads products, customers and orders from a commercetools
// project and writes billing order numbers back onto orders.
type CommercetoolsAdapter struct {
	config     *CommercetoolsConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// CommercetoolsOption configures a CommercetoolsAdapter
type CommercetoolsOption func(*adapterOptions)

type adapterOptions struct {
	baseClient *http.Client
}

// WithBaseHTTPClient sets the transport used for both token and API calls
func WithBaseHTTPClient(client *http.Client) CommercetoolsOption {
	return func(o *adapterOptions) {
		o.baseClient = client
	}
}

// NewCommercetoolsAdapter creates an adapter authenticating with the client-credentials flow.
// Tokens are fetched lazily and refreshed by the oauth2 token source.
func NewCommercetoolsAdapter(cfg *CommercetoolsConfig, logger *zap.Logger, opts ...CommercetoolsOption) (*CommercetoolsAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	options := &adapterOptions{}
	for _, opt := range opts {
		opt(options)
	}

	tokenCtx := context.Background()
	if options.baseClient != nil {
		tokenCtx = context.WithValue(tokenCtx, oauth2.HTTPClient, options.baseClient)
	}
	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.tokenURL(),
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	httpClient := credentials.Client(tokenCtx)
	httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	return &CommercetoolsAdapter{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.Named("commercetools"),
	}, nil
}

// GetProductProjection returns the current published projection of a product
func (a *CommercetoolsAdapter) GetProductProjection(ctx context.Context, id string) (*integration.ProductProjection, error) {
	query := url.Values{"where": {fmt.Sprintf("id=%q", id)}}
	var page ctPagedQuery[ctProductProjection]
	if _, err := a.doRequest(ctx, http.MethodGet, "/product-projections?"+query.Encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("get product projection %s: %w", id, err)
	}
	if len(page.Results) == 0 {
		a.logger.Debug("Product projection not found", zap.String("product_id", id))
		return nil, nil
	}
	product := convertProductProjection(&page.Results[0])
	return &product, nil
}

// GetCustomer returns a customer by id, or nil when it does not exist
func (a *CommercetoolsAdapter) GetCustomer(ctx context.Context, id string) (*integration.Customer, error) {
	var customer ctCustomer
	found, err := a.doRequest(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &customer)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	if !found {
		a.logger.Debug("Customer not found", zap.String("customer_id", id))
		return nil, nil
	}
	result := convertCustomer(&customer)
	return &result, nil
}

// GetOrder returns an order by id, or nil when it does not exist
func (a *CommercetoolsAdapter) GetOrder(ctx context.Context, id string) (*integration.Order, error) {
	var order ctOrder
	found, err := a.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &order)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	if !found {
		a.logger.Debug("Order not found", zap.String("order_id", id))
		return nil, nil
	}
	result := convertOrder(&order)
	return &result, nil
}

// SetOrderNumber applies the setOrderNumber update action at the given version
func (a *CommercetoolsAdapter) SetOrderNumber(ctx context.Context, orderID string, version int64, orderNumber string) error {
	update := ctUpdate{
		Version: version,
		Actions: []any{ctSetOrderNumber{Action: "setOrderNumber", OrderNumber: orderNumber}},
	}
	found, err := a.doRequest(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID), update, nil)
	if err != nil {
		return fmt.Errorf("set order number on %s: %w", orderID, err)
	}
	if !found {
		return fmt.Errorf("%w: order %s not found", integration.ErrCommerceRequestFailed, orderID)
	}
	a.logger.Info("Set order number", zap.String("order_id", orderID), zap.String("order_number", orderNumber))
	return nil
}

// doRequest issues an authenticated JSON call. It returns found=false on 404.
func (a *CommercetoolsAdapter) doRequest(ctx context.Context, method, path string, body, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("commercetools: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.projectURL()+path, reader)
	if err != nil {
		return false, fmt.Errorf("commercetools: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", integration.ErrCommerceRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxCommercetoolsResponseSize))
	if err != nil {
		return false, fmt.Errorf("commercetools: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("%w: %s %s: HTTP %d: %s", integration.ErrCommerceRequestFailed, method, path, resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return false, fmt.Errorf("commercetools: failed to decode response: %w", err)
		}
	}
	return true, nil
}

func convertVariant(v *ctVariant) integration.ProductVariant {
	variant := integration.ProductVariant{
		ID:         v.ID,
		SKU:        v.SKU,
		Prices:     make([]integration.Price, 0, len(v.Prices)),
		Attributes: make([]integration.Attribute, 0, len(v.Attributes)),
	}
	for _, p := range v.Prices {
		variant.Prices = append(variant.Prices, integration.Price{
			ID: p.ID,
			Value: integration.Money{
				CurrencyCode:   p.Value.CurrencyCode,
				CentAmount:     p.Value.CentAmount,
				FractionDigits: p.Value.FractionDigits,
			},
		})
	}
	for _, attr := range v.Attributes {
		variant.Attributes = append(variant.Attributes, integration.Attribute{Name: attr.Name, Value: attr.Value})
	}
	return variant
}

func convertProductProjection(p *ctProductProjection) integration.ProductProjection {
	product := integration.ProductProjection{
		ID:            p.ID,
		Version:       p.Version,
		MasterVariant: convertVariant(&p.MasterVariant),
		Variants:      make([]integration.ProductVariant, 0, len(p.Variants)),
	}
	for i := range p.Variants {
		product.Variants = append(product.Variants, convertVariant(&p.Variants[i]))
	}
	return product
}

func convertAddress(a ctAddress) integration.Address {
	return integration.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Country:   a.Country,
		State:     a.State,
	}
}

func convertCustomer(c *ctCustomer) integration.Customer {
	customer := integration.Customer{
		ID:        c.ID,
		Version:   c.Version,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
	for _, addr := range c.Addresses {
		customer.Addresses = append(customer.Addresses, convertAddress(addr))
	}
	return customer
}

func convertOrder(o *ctOrder) integration.Order {
	order := integration.Order{
		ID:            o.ID,
		Version:       o.Version,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		LineItems:     make([]integration.LineItem, 0, len(o.LineItems)),
	}
	if o.BillingAddress != nil {
		addr := convertAddress(*o.BillingAddress)
		order.BillingAddress = &addr
	}
	for i := range o.LineItems {
		li := &o.LineItems[i]
		order.LineItems = append(order.LineItems, integration.LineItem{
			ID:        li.ID,
			ProductID: li.ProductID,
			Variant:   convertVariant(&li.Variant),
			Quantity:  li.Quantity,
		})
	}
	return order
}

func versionQuery(version int64) string {
	return "?" + url.Values{"version": {strconv.FormatInt(version, 10)}}.Encode()
}

var _ integration.CommercePlatform = (*CommercetoolsAdapter)(nil)
