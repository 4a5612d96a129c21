package billingsync

import (
	"context"
	"fmt"

	"github.com/zuorasync/backend/internal/domain/integration"
	"github.com/zuorasync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderSyncService creates billing orders for commerce orders
type OrderSyncService struct {
	billing  integration.BillingPlatform
	accounts *AccountSyncService
	config   ServiceConfig
	logger   *zap.Logger
}

// NewOrderSyncService creates a new OrderSyncService
func NewOrderSyncService(billing integration.BillingPlatform, accounts *AccountSyncService, cfg ServiceConfig, logger *zap.Logger) *OrderSyncService {
	return &OrderSyncService{
		billing:  billing,
		accounts: accounts,
		config:   cfg,
		logger:   logger,
	}
}

// OrderCreated creates one billing order holding a subscription per line item.
// Line items resolve to rate plans sequentially, preserving their order.
func (s *OrderSyncService) OrderCreated(ctx context.Context, order *integration.Order) (*integration.OrderResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "billingsync.order_created")
	defer span.End()

	if !integration.ValidOrder(order) {
		err := fmt.Errorf("%w: invalid order", integration.ErrEntityInvalid)
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrResourceID, order.ID,
		"sync.line_items", len(order.LineItems),
	)

	if err := s.accounts.EnsureAccount(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	today := s.config.today()
	date := today.Format(integration.DateLayout)

	subscriptions := make([]integration.OrderSubscription, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		plan, err := s.billing.GetRatePlanBySKU(ctx, item.Variant.SKU)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("resolve rate plan for line item %s: %w", item.ID, err)
		}
		subscriptions = append(subscriptions, integration.OrderSubscription{
			OrderActions: []integration.OrderAction{{
				Type: integration.OrderActionCreateSubscription,
				CreateSubscription: &integration.CreateSubscription{
					Terms:                s.config.Terms.Terms(today),
					SubscribeToRatePlans: []integration.RatePlanRef{{ProductRatePlanID: plan.ID}},
				},
				TriggerDates: []integration.TriggerDate{{
					Name:        integration.TriggerEventContractEffective,
					TriggerDate: date,
				}},
			}},
		})
	}

	result, err := s.billing.CreateOrder(ctx, integration.OrderRequest{
		OrderNumber:           order.ID,
		Description:           order.ID,
		ExistingAccountNumber: order.CustomerID,
		OrderDate:             date,
		Subscriptions:         subscriptions,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Created order", zap.String("order_id", order.ID), zap.String("order_number", result.OrderNumber))
	return result, nil
}
