package billingsync

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zuorasync/backend/internal/domain/integration"
)

// MockBillingPlatform is a mock implementation of integration.BillingPlatform
type MockBillingPlatform struct {
	mock.Mock
}

func (m *MockBillingPlatform) CreateProduct(ctx context.Context, req integration.ProductRequest) (*integration.CrudResult, error) {
	args := m.Called(ctx, req)
	return crudResult(args.Get(0)), args.Error(1)
}

func (m *MockBillingPlatform) UpdateProduct(ctx context.Context, id string, req integration.ProductRequest) (*integration.CrudResult, error) {
	args := m.Called(ctx, id, req)
	return crudResult(args.Get(0)), args.Error(1)
}

func (m *MockBillingPlatform) GetProductBySKU(ctx context.Context, sku string) (*integration.BillingProduct, bool, error) {
	args := m.Called(ctx, sku)
	product, _ := args.Get(0).(*integration.BillingProduct)
	return product, args.Bool(1), args.Error(2)
}

func (m *MockBillingPlatform) CreateRatePlan(ctx context.Context, req integration.RatePlanRequest) (*integration.CrudResult, error) {
	args := m.Called(ctx, req)
	return crudResult(args.Get(0)), args.Error(1)
}

func (m *MockBillingPlatform) GetRatePlanByProductID(ctx context.Context, productID string) (*integration.RatePlan, bool, error) {
	args := m.Called(ctx, productID)
	plan, _ := args.Get(0).(*integration.RatePlan)
	return plan, args.Bool(1), args.Error(2)
}

func (m *MockBillingPlatform) GetRatePlanBySKU(ctx context.Context, sku string) (*integration.RatePlan, error) {
	args := m.Called(ctx, sku)
	plan, _ := args.Get(0).(*integration.RatePlan)
	return plan, args.Error(1)
}

func (m *MockBillingPlatform) CreateCharge(ctx context.Context, req integration.ChargeRequest) (*integration.CrudResult, error) {
	args := m.Called(ctx, req)
	return crudResult(args.Get(0)), args.Error(1)
}

func (m *MockBillingPlatform) UpdateCharge(ctx context.Context, id string, req integration.ChargeRequest) (*integration.CrudResult, error) {
	args := m.Called(ctx, id, req)
	return crudResult(args.Get(0)), args.Error(1)
}

func (m *MockBillingPlatform) DeleteCharge(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBillingPlatform) GetChargeByRatePlanID(ctx context.Context, ratePlanID string) (*integration.ChargeRecord, bool, error) {
	args := m.Called(ctx, ratePlanID)
	charge, _ := args.Get(0).(*integration.ChargeRecord)
	return charge, args.Bool(1), args.Error(2)
}

func (m *MockBillingPlatform) CreateAccount(ctx context.Context, req integration.AccountSignup) (*integration.SignupResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*integration.SignupResult)
	return result, args.Error(1)
}

func (m *MockBillingPlatform) GetAccount(ctx context.Context, accountNumber string) (*integration.AccountSummary, error) {
	args := m.Called(ctx, accountNumber)
	summary, _ := args.Get(0).(*integration.AccountSummary)
	return summary, args.Error(1)
}

func (m *MockBillingPlatform) CreateOrder(ctx context.Context, req integration.OrderRequest) (*integration.OrderResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*integration.OrderResult)
	return result, args.Error(1)
}

func crudResult(v any) *integration.CrudResult {
	result, _ := v.(*integration.CrudResult)
	return result
}

// MockCommercePlatform is a mock implementation of integration.CommercePlatform
type MockCommercePlatform struct {
	mock.Mock
}

func (m *MockCommercePlatform) GetProductProjection(ctx context.Context, id string) (*integration.ProductProjection, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*integration.ProductProjection)
	return product, args.Error(1)
}

func (m *MockCommercePlatform) GetCustomer(ctx context.Context, id string) (*integration.Customer, error) {
	args := m.Called(ctx, id)
	customer, _ := args.Get(0).(*integration.Customer)
	return customer, args.Error(1)
}

func (m *MockCommercePlatform) GetOrder(ctx context.Context, id string) (*integration.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*integration.Order)
	return order, args.Error(1)
}

func (m *MockCommercePlatform) SetOrderNumber(ctx context.Context, orderID string, version int64, orderNumber string) error {
	args := m.Called(ctx, orderID, version, orderNumber)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		Currency: "USD",
		Terms:    integration.DefaultTermPolicy(),
		Now:      func() time.Time { return fixedNow },
	}
}
