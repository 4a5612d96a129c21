package billingsync

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zuorasync/backend/internal/domain/integration"
	"go.uber.org/zap"
)

func sellableVariant(sku string, cents int64) integration.ProductVariant {
	return integration.ProductVariant{
		ID:  1,
		SKU: sku,
		Prices: []integration.Price{
			{ID: "price-1", Value: integration.Money{CurrencyCode: "USD", CentAmount: cents, FractionDigits: 2}},
		},
		Attributes: []integration.Attribute{
			{Name: integration.AttributeSellable, Value: true},
			{Name: integration.AttributeOfferingName, Value: "Gold Plan"},
			{Name: integration.AttributeVariantDescription, Value: map[string]any{"en-US": "Gold tier", "de-DE": "Goldstufe"}},
		},
	}
}

func sellableProduct(master integration.ProductVariant, variants ...integration.ProductVariant) *integration.ProductProjection {
	return &integration.ProductProjection{ID: "prod-1", MasterVariant: master, Variants: variants}
}

func TestProductSyncService_NewVariant(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").Return(nil, false, nil).Once()
	billing.On("CreateProduct", mock.Anything, integration.ProductRequest{
		Name:               "gold monthly",
		Description:        "Gold tier",
		SKU:                "gold-monthly",
		EffectiveStartDate: integration.ProductEffectiveStartDate,
		EffectiveEndDate:   integration.ProductEffectiveEndDate,
	}).Return(&integration.CrudResult{ID: "bp-1", Success: true}, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").Return(nil, false, nil).Once()
	billing.On("CreateRatePlan", mock.Anything, integration.RatePlanRequest{Name: "Gold Plan", ProductID: "bp-1"}).
		Return(&integration.CrudResult{ID: "rp-1", Success: true}, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").
		Return(&integration.RatePlan{ID: "rp-1", Name: "Gold Plan"}, true, nil).Once()
	billing.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req integration.ChargeRequest) bool {
		return req.ProductRatePlanID == "rp-1" &&
			req.Name == "Gold Plan" &&
			req.ChargeModel == integration.ChargeModelFlatFee &&
			req.ChargeType == integration.ChargeTypeRecurring &&
			req.BillingPeriod == integration.BillingPeriodMonth &&
			len(req.TierData.Tiers) == 1 &&
			req.TierData.Tiers[0] == integration.ChargeTier{Currency: "USD", Price: 19.99}
	})).Return(&integration.CrudResult{ID: "ch-1", Success: true}, nil).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(sellableVariant("gold-monthly", 1999)))
	require.NoError(t, err)
	require.Len(t, report.Variants, 1)
	assert.Equal(t, VariantActionCreate, report.Variants[0].Action)
	assert.NoError(t, report.Variants[0].Err)
	assert.Zero(t, report.Failed())
	billing.AssertExpectations(t)
}

func TestProductSyncService_ExistingVariantSamePrice(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").
		Return(&integration.BillingProduct{ID: "bp-1", Name: "gold monthly", Description: "Gold tier", SKU: "gold-monthly"}, true, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").Return(&integration.RatePlan{
		ID: "rp-1",
		Charges: []integration.RatePlanCharge{{
			ID:      "ch-1",
			Pricing: []integration.ChargePricing{{Currency: "USD", Price: decimal.RequireFromString("19.990")}},
		}},
	}, true, nil).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(sellableVariant("gold-monthly", 1999)))
	require.NoError(t, err)
	require.Len(t, report.Variants, 1)
	assert.Equal(t, VariantActionUpdate, report.Variants[0].Action)
	assert.NoError(t, report.Variants[0].Err)

	billing.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything, mock.Anything)
	billing.AssertNotCalled(t, "DeleteCharge", mock.Anything, mock.Anything)
	billing.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
}

func TestProductSyncService_ExistingVariantPriceChanged(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	var order []string
	record := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) { order = append(order, name) }
	}

	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").
		Return(&integration.BillingProduct{ID: "bp-1", Name: "old name", Description: "Gold tier"}, true, nil).Once()
	billing.On("UpdateProduct", mock.Anything, "bp-1", mock.MatchedBy(func(req integration.ProductRequest) bool {
		return req.Name == "gold monthly" && req.Description == "Gold tier"
	})).Return(&integration.CrudResult{ID: "bp-1", Success: true}, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").Return(&integration.RatePlan{
		ID:   "rp-1",
		Name: "Gold Plan",
		Charges: []integration.RatePlanCharge{{
			ID:      "ch-old",
			Pricing: []integration.ChargePricing{{Currency: "USD", Price: decimal.RequireFromString("9.99")}},
		}},
	}, true, nil).Once()
	billing.On("DeleteCharge", mock.Anything, "ch-old").Run(record("delete")).Return(nil).Once()
	billing.On("CreateCharge", mock.Anything, mock.Anything).Run(record("create")).
		Return(&integration.CrudResult{ID: "ch-new", Success: true}, nil).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(sellableVariant("gold-monthly", 1999)))
	require.NoError(t, err)
	assert.Zero(t, report.Failed())
	assert.Equal(t, []string{"delete", "create"}, order)
	billing.AssertExpectations(t)
}

func TestProductSyncService_DeleteChargeFails(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").
		Return(&integration.BillingProduct{ID: "bp-1", Name: "gold monthly", Description: "Gold tier"}, true, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").Return(&integration.RatePlan{
		ID:      "rp-1",
		Charges: []integration.RatePlanCharge{{ID: "ch-old", Pricing: []integration.ChargePricing{{Price: decimal.NewFromInt(5)}}}},
	}, true, nil).Once()
	billing.On("DeleteCharge", mock.Anything, "ch-old").
		Return(integration.NewRejectedError("DELETE", "/v1/object/product-rate-plan-charge/ch-old", "Error deleting price")).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(sellableVariant("gold-monthly", 1999)))
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed())
	assert.ErrorIs(t, report.Variants[0].Err, integration.ErrBillingRejected)
	billing.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
}

func TestProductSyncService_NotSellable(t *testing.T) {
	tests := []struct {
		name  string
		value any
		omit  bool
	}{
		{name: "attribute missing", omit: true},
		{name: "attribute false", value: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			billing := new(MockBillingPlatform)
			svc := NewProductSyncService(billing, nil, zap.NewNop())

			master := sellableVariant("gold-monthly", 1999)
			master.Attributes = master.Attributes[1:]
			if !tt.omit {
				master.Attributes = append(master.Attributes, integration.Attribute{Name: integration.AttributeSellable, Value: tt.value})
			}

			report, err := svc.ProductPublished(context.Background(), sellableProduct(master))
			require.NoError(t, err)
			assert.True(t, report.Skipped)
			assert.Empty(t, report.Variants)
			assert.Empty(t, billing.Calls)
		})
	}
}

func TestProductSyncService_MissingOfferingName(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	master := sellableVariant("gold-monthly", 1999)
	master.Attributes = master.Attributes[:1]

	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").Return(nil, false, nil).Once()
	billing.On("CreateProduct", mock.Anything, mock.MatchedBy(func(req integration.ProductRequest) bool {
		return req.Description == ""
	})).Return(&integration.CrudResult{ID: "bp-1", Success: true}, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").Return(nil, false, nil).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(master))
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed())
	assert.ErrorIs(t, report.Variants[0].Err, integration.ErrEntityInvalid)
	billing.AssertNotCalled(t, "CreateRatePlan", mock.Anything, mock.Anything)
}

func TestProductSyncService_NoPrices(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	master := sellableVariant("gold-monthly", 0)
	master.Prices = nil

	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").
		Return(&integration.BillingProduct{ID: "bp-1", Name: "gold monthly", Description: "Gold tier"}, true, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").Return(&integration.RatePlan{ID: "rp-1"}, true, nil).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(master))
	require.NoError(t, err)
	assert.Zero(t, report.Failed())
	billing.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
}

func TestProductSyncService_VariantsAreIndependent(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	master := sellableVariant("gold-monthly", 1999)
	broken := sellableVariant("gold-yearly", 19999)
	noSKU := sellableVariant("", 500)

	billing.On("GetProductBySKU", mock.Anything, "gold-yearly").Return(nil, false, errors.New("connection reset")).Once()
	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").
		Return(&integration.BillingProduct{ID: "bp-1", Name: "gold monthly", Description: "Gold tier"}, true, nil).Once()
	billing.On("GetRatePlanByProductID", mock.Anything, "bp-1").Return(&integration.RatePlan{ID: "rp-1", Name: "Gold Plan"}, true, nil).Once()
	billing.On("CreateCharge", mock.Anything, mock.Anything).Return(&integration.CrudResult{ID: "ch-1", Success: true}, nil).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(master, broken, noSKU))
	require.NoError(t, err)
	require.Len(t, report.Variants, 2)
	assert.Equal(t, 1, report.Failed())

	bySKU := map[string]VariantResult{}
	for _, v := range report.Variants {
		bySKU[v.SKU] = v
	}
	assert.Error(t, bySKU["gold-yearly"].Err)
	assert.NoError(t, bySKU["gold-monthly"].Err)
	billing.AssertExpectations(t)
}

func TestProductSyncService_VariantPanicIsContained(t *testing.T) {
	billing := new(MockBillingPlatform)
	svc := NewProductSyncService(billing, nil, zap.NewNop())

	billing.On("GetProductBySKU", mock.Anything, "gold-monthly").
		Run(func(mock.Arguments) { panic("unexpected payload") }).
		Return(nil, false, nil).Once()

	report, err := svc.ProductPublished(context.Background(), sellableProduct(sellableVariant("gold-monthly", 1999)))
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed())
	assert.Contains(t, report.Variants[0].Err.Error(), "unexpected payload")
}

func TestProductName(t *testing.T) {
	assert.Equal(t, "gold monthly", productName("gold-monthly"))
	assert.Equal(t, "gold monthly-eu", productName("gold-monthly-eu"))
	assert.Equal(t, "gold", productName("gold"))
}

func TestMajorUnits(t *testing.T) {
	assert.True(t, majorUnits(1999).Equal(decimal.RequireFromString("19.99")))
	assert.True(t, majorUnits(5).Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, "100.00", majorUnits(10000).StringFixed(2))
}
