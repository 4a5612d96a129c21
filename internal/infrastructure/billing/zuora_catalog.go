package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zuorasync/backend/internal/domain/integration"
	"go.uber.org/zap"
)

const (
	productObjectPath  = "/v1/object/product"
	ratePlanObjectPath = "/v1/object/product-rate-plan"
	chargeObjectPath   = "/v1/object/product-rate-plan-charge"
	productQueryPath   = "/object-query/products"
	chargeQueryPath    = "/object-query/product-rate-plan-charges"
	catalogProductPath = "/v1/catalog/products"
)

// CreateProduct creates a catalog product
func (c *ZuoraClient) CreateProduct(ctx context.Context, req integration.ProductRequest) (*integration.CrudResult, error) {
	result, err := c.writeObject(ctx, http.MethodPost, productObjectPath, productObjectPath, req, "Error creating product")
	if err != nil {
		return nil, fmt.Errorf("create product %s: %w", req.SKU, err)
	}
	c.logger.Info("Created billing product", zap.String("id", result.ID), zap.String("sku", req.SKU))
	return result, nil
}

// UpdateProduct updates the catalog product identified by id
func (c *ZuoraClient) UpdateProduct(ctx context.Context, id string, req integration.ProductRequest) (*integration.CrudResult, error) {
	path := productObjectPath + "/" + url.PathEscape(id)
	result, err := c.writeObject(ctx, http.MethodPut, path, productObjectPath+"/{id}", req, "Error updating product")
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return result, nil
}

// GetProductBySKU returns the first catalog product whose SKU equals sku
func (c *ZuoraClient) GetProductBySKU(ctx context.Context, sku string) (*integration.BillingProduct, bool, error) {
	var result queryResponse[integration.BillingProduct]
	if err := c.doRequest(ctx, http.MethodGet, filterPath(productQueryPath, "SKU.EQ:"+sku), productQueryPath, nil, &result); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query product by SKU %s: %w", sku, err)
	}
	if len(result.Data) == 0 {
		return nil, false, nil
	}
	return &result.Data[0], true, nil
}

// CreateRatePlan creates a rate plan under a product
func (c *ZuoraClient) CreateRatePlan(ctx context.Context, req integration.RatePlanRequest) (*integration.CrudResult, error) {
	result, err := c.writeObject(ctx, http.MethodPost, ratePlanObjectPath, ratePlanObjectPath, req, "Error creating rate plan")
	if err != nil {
		return nil, fmt.Errorf("create rate plan for product %s: %w", req.ProductID, err)
	}
	c.logger.Info("Created billing rate plan", zap.String("id", result.ID), zap.String("product_id", req.ProductID))
	return result, nil
}

// GetRatePlanByProductID returns the first rate plan of a product
func (c *ZuoraClient) GetRatePlanByProductID(ctx context.Context, productID string) (*integration.RatePlan, bool, error) {
	var result catalogProduct
	path := catalogProductPath + "/" + url.PathEscape(productID)
	if err := c.doRequest(ctx, http.MethodGet, path, catalogProductPath+"/{id}", nil, &result); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get rate plan of product %s: %w", productID, err)
	}
	if len(result.ProductRatePlans) == 0 {
		return nil, false, nil
	}
	return &result.ProductRatePlans[0], true, nil
}

// GetRatePlanBySKU resolves a SKU to its product's rate plan.
func (c *ZuoraClient) GetRatePlanBySKU(ctx context.Context, sku string) (*integration.RatePlan, error) {
	product, found, err := c.GetProductBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: Product not found (sku %s)", integration.ErrBillingEntityNotFound, sku)
	}

	plan, found, err := c.GetRatePlanByProductID(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: Product not found (no rate plan for sku %s)", integration.ErrBillingEntityNotFound, sku)
	}
	return plan, nil
}

// CreateCharge creates a rate plan charge
func (c *ZuoraClient) CreateCharge(ctx context.Context, req integration.ChargeRequest) (*integration.CrudResult, error) {
	result, err := c.writeObject(ctx, http.MethodPost, chargeObjectPath, chargeObjectPath, req, "Error creating price")
	if err != nil {
		return nil, fmt.Errorf("create charge for rate plan %s: %w", req.ProductRatePlanID, err)
	}
	c.logger.Info("Created billing charge", zap.String("id", result.ID), zap.String("rate_plan_id", req.ProductRatePlanID))
	return result, nil
}

// UpdateCharge updates the rate plan charge identified by id
func (c *ZuoraClient) UpdateCharge(ctx context.Context, id string, req integration.ChargeRequest) (*integration.CrudResult, error) {
	path := chargeObjectPath + "/" + url.PathEscape(id)
	result, err := c.writeObject(ctx, http.MethodPut, path, chargeObjectPath+"/{id}", req, "Error updating price")
	if err != nil {
		return nil, fmt.Errorf("update charge %s: %w", id, err)
	}
	return result, nil
}

// writeObject issues a generic object create or update. A reply without
// Success is a rejection even when it carries no error list.
func (c *ZuoraClient) writeObject(ctx context.Context, method, path, endpoint string, req any, reason string) (*integration.CrudResult, error) {
	var result integration.CrudResult
	if err := c.doRequest(ctx, method, path, endpoint, req, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, integration.NewRejectedError(method, path, reason)
	}
	return &result, nil
}

// DeleteCharge deletes the rate plan charge identified by id
func (c *ZuoraClient) DeleteCharge(ctx context.Context, id string) error {
	var result deleteResponse
	path := chargeObjectPath + "/" + url.PathEscape(id)
	if err := c.doRequest(ctx, http.MethodDelete, path, chargeObjectPath+"/{id}", nil, &result); err != nil {
		return fmt.Errorf("delete charge %s: %w", id, err)
	}
	if !result.Success {
		return integration.NewRejectedError(http.MethodDelete, path, "Error deleting price")
	}
	c.logger.Info("Deleted billing charge", zap.String("id", id))
	return nil
}

// GetChargeByRatePlanID returns the first charge of a rate plan
func (c *ZuoraClient) GetChargeByRatePlanID(ctx context.Context, ratePlanID string) (*integration.ChargeRecord, bool, error) {
	var result queryResponse[integration.ChargeRecord]
	if err := c.doRequest(ctx, http.MethodGet, filterPath(chargeQueryPath, "productRatePlanId.EQ:"+ratePlanID), chargeQueryPath, nil, &result); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query charge by rate plan %s: %w", ratePlanID, err)
	}
	if len(result.Data) == 0 {
		return nil, false, nil
	}
	return &result.Data[0], true, nil
}

func filterPath(path, filter string) string {
	return path + "?" + url.Values{"filter[]": {filter}}.Encode()
}

// isNotFound reports whether err is an HTTP 404 from the billing platform
func isNotFound(err error) bool {
	var be *integration.BillingError
	return errors.As(err, &be) && be.StatusCode == http.StatusNotFound
}
