package billingsync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/zuorasync/backend/internal/domain/integration"
	"github.com/zuorasync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// VariantAction is the reconciliation path taken for a variant
type VariantAction string

const (
	VariantActionNone   VariantAction = ""
	VariantActionCreate VariantAction = "create"
	VariantActionUpdate VariantAction = "update"
)

// VariantResult is the outcome of reconciling one variant
type VariantResult struct {
	SKU    string
	Action VariantAction
	Err    error
}

// ProductSyncReport collects the per-variant outcomes of a product publication
type ProductSyncReport struct {
	ProductID string
	// Skipped is set when the product is not sellable
	Skipped  bool
	Variants []VariantResult
}

// Failed returns the number of variants whose reconciliation failed
func (r *ProductSyncReport) Failed() int {
	n := 0
	for _, v := range r.Variants {
		if v.Err != nil {
			n++
		}
	}
	return n
}

// ProductSyncService reconciles product variants into the billing catalog.
// Each SKU maps to one billing product with one rate plan and at most one charge.
type ProductSyncService struct {
	billing integration.BillingPlatform
	metrics *telemetry.SyncMetrics
	logger  *zap.Logger
}

// NewProductSyncService creates a new ProductSyncService
func NewProductSyncService(billing integration.BillingPlatform, metrics *telemetry.SyncMetrics, logger *zap.Logger) *ProductSyncService {
	return &ProductSyncService{
		billing: billing,
		metrics: metrics,
		logger:  logger,
	}
}

// ProductPublished reconciles every SKU-carrying variant concurrently. Variant
// failures are logged and reported, never returned.
func (s *ProductSyncService) ProductPublished(ctx context.Context, product *integration.ProductProjection) (*ProductSyncReport, error) {
	if product == nil {
		return nil, fmt.Errorf("%w: nil product", integration.ErrEntityInvalid)
	}
	ctx, span := telemetry.StartSpan(ctx, "billingsync.product_published",
		telemetry.WithAttribute(telemetry.SpanAttrResourceID, product.ID),
	)
	defer span.End()

	report := &ProductSyncReport{ProductID: product.ID}
	s.logger.Info("Validating product", zap.String("product_id", product.ID))
	if !integration.ValidProduct(product) {
		s.logger.Info("Product is not sellable, skipping", zap.String("product_id", product.ID))
		report.Skipped = true
		return report, nil
	}

	variants := make([]integration.ProductVariant, 0, len(product.Variants)+1)
	for _, v := range product.AllVariants() {
		if v.SKU != "" {
			variants = append(variants, v)
		}
	}

	report.Variants = make([]VariantResult, len(variants))
	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Go(func() {
			report.Variants[i] = s.syncVariant(ctx, product.ID, variant)
		})
	}
	wg.Wait()

	telemetry.SetAttributes(span, "sync.variants", len(variants), "sync.variants_failed", report.Failed())
	return report, nil
}

func (s *ProductSyncService) syncVariant(ctx context.Context, productID string, variant integration.ProductVariant) (result VariantResult) {
	ctx, span := telemetry.StartSpan(ctx, "billingsync.sync_variant",
		telemetry.WithAttribute(telemetry.SpanAttrSKU, variant.SKU),
	)
	defer span.End()

	result.SKU = variant.SKU
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic reconciling variant %s: %v", variant.SKU, r)
		}
		outcome := "ok"
		if result.Err != nil {
			outcome = "error"
			telemetry.RecordError(span, result.Err)
			s.logger.Error("Error creating product",
				zap.String("product_id", productID),
				zap.String("sku", variant.SKU),
				zap.Error(result.Err),
			)
		}
		telemetry.SetAttributes(span, telemetry.SpanAttrVariantAction, string(result.Action))
		s.metrics.VariantSynced(ctx, string(result.Action), outcome)
	}()

	result.Action, result.Err = s.createOrUpdateProduct(ctx, variant)
	return result
}

// createOrUpdateProduct picks the create or update path by SKU lookup.
func (s *ProductSyncService) createOrUpdateProduct(ctx context.Context, variant integration.ProductVariant) (VariantAction, error) {
	existing, found, err := s.billing.GetProductBySKU(ctx, variant.SKU)
	if err != nil {
		return VariantActionNone, err
	}
	if found {
		s.logger.Info("Updating product variant", zap.String("sku", variant.SKU))
		return VariantActionUpdate, s.updateProduct(ctx, existing, variant)
	}
	s.logger.Info("Creating product variant", zap.String("sku", variant.SKU))
	return VariantActionCreate, s.createProduct(ctx, variant)
}

func (s *ProductSyncService) createProduct(ctx context.Context, variant integration.ProductVariant) error {
	description, _ := variant.StringAttribute(integration.AttributeVariantDescription)

	created, err := s.billing.CreateProduct(ctx, integration.ProductRequest{
		Name:               productName(variant.SKU),
		Description:        description,
		SKU:                variant.SKU,
		EffectiveStartDate: integration.ProductEffectiveStartDate,
		EffectiveEndDate:   integration.ProductEffectiveEndDate,
	})
	if err != nil {
		return err
	}

	plan, err := s.createOrGetPlan(ctx, variant, created.ID)
	if err != nil {
		return err
	}
	return s.createOrUpdatePrice(ctx, variant, plan)
}

func (s *ProductSyncService) updateProduct(ctx context.Context, existing *integration.BillingProduct, variant integration.ProductVariant) error {
	description, _ := variant.StringAttribute(integration.AttributeVariantDescription)
	name := productName(variant.SKU)

	if existing.Description != description || existing.Name != name {
		_, err := s.billing.UpdateProduct(ctx, existing.ID, integration.ProductRequest{
			ID:          existing.ID,
			Name:        orDefault(name, existing.Name),
			Description: orDefault(description, existing.Description),
			SKU:         variant.SKU,
		})
		if err != nil {
			return err
		}
		s.logger.Info("Updated product", zap.String("id", existing.ID), zap.String("sku", variant.SKU))
	}

	plan, err := s.createOrGetPlan(ctx, variant, existing.ID)
	if err != nil {
		return err
	}
	return s.createOrUpdatePrice(ctx, variant, plan)
}

// createOrGetPlan reuses the product's rate plan or creates one named after the offering.
func (s *ProductSyncService) createOrGetPlan(ctx context.Context, variant integration.ProductVariant, productID string) (*integration.RatePlan, error) {
	plan, found, err := s.billing.GetRatePlanByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if found {
		return plan, nil
	}

	offerName, ok := variant.StringAttribute(integration.AttributeOfferingName)
	if !ok || offerName == "" {
		return nil, fmt.Errorf("%w: offering name not found for sku %s", integration.ErrEntityInvalid, variant.SKU)
	}

	created, err := s.billing.CreateRatePlan(ctx, integration.RatePlanRequest{Name: offerName, ProductID: productID})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Created plan", zap.String("id", created.ID), zap.String("product_id", productID))

	plan, found, err = s.billing.GetRatePlanByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: rate plan for product %s", integration.ErrBillingEntityNotFound, productID)
	}
	return plan, nil
}

// createOrUpdatePrice keeps a single charge on the plan matching the variant's first price.
// A differing charge is deleted before its replacement is created.
func (s *ProductSyncService) createOrUpdatePrice(ctx context.Context, variant integration.ProductVariant, plan *integration.RatePlan) error {
	if len(variant.Prices) == 0 {
		return nil
	}

	if len(plan.Charges) == 0 {
		return s.createPrice(ctx, variant, plan)
	}

	charge := plan.Charges[0]
	desired := majorUnits(variant.Prices[0].Value.CentAmount)
	if len(charge.Pricing) > 0 && charge.Pricing[0].Price.Round(2).Equal(desired) {
		s.logger.Info("Price already exists", zap.String("charge_id", charge.ID), zap.String("sku", variant.SKU))
		return nil
	}

	s.logger.Info("Price with different value found",
		zap.String("charge_id", charge.ID),
		zap.String("price", desired.StringFixed(2)),
	)
	if err := s.billing.DeleteCharge(ctx, charge.ID); err != nil {
		return err
	}
	return s.createPrice(ctx, variant, plan)
}

func (s *ProductSyncService) createPrice(ctx context.Context, variant integration.ProductVariant, plan *integration.RatePlan) error {
	name, ok := variant.StringAttribute(integration.AttributeOfferingName)
	if !ok || name == "" {
		name = plan.Name
	}

	tiers := make([]integration.ChargeTier, 0, len(variant.Prices))
	for _, price := range variant.Prices {
		tiers = append(tiers, integration.ChargeTier{
			Currency: price.Value.CurrencyCode,
			Price:    majorUnits(price.Value.CentAmount).InexactFloat64(),
		})
	}

	result, err := s.billing.CreateCharge(ctx, integration.ChargeRequest{
		ProductRatePlanID:                 plan.ID,
		Name:                              name,
		BillCycleType:                     integration.BillCycleTypeDefaultFromCustomer,
		ChargeModel:                       integration.ChargeModelFlatFee,
		ChargeType:                        integration.ChargeTypeRecurring,
		UOM:                               integration.UnitOfMeasureEach,
		UseDiscountSpecificAccountingCode: false,
		AccountingCode:                    integration.AccountingCodeDeferredRevenue,
		DeferredRevenueAccount:            integration.AccountingCodeDeferredRevenue,
		RecognizedRevenueAccount:          integration.AccountReceivable,
		BillingPeriod:                     integration.BillingPeriodMonth,
		TriggerEvent:                      integration.TriggerEventContractEffective,
		TierData:                          integration.ChargeTierData{Tiers: tiers},
	})
	if err != nil {
		return err
	}
	s.logger.Info("Created price", zap.String("charge_id", result.ID), zap.String("sku", variant.SKU))
	return nil
}

// productName derives the billing product name from a SKU: the first hyphen becomes a space.
func productName(sku string) string {
	return strings.Replace(sku, "-", " ", 1)
}

// majorUnits converts a minor unit amount to major units rounded to cents
func majorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2).Round(2)
}
