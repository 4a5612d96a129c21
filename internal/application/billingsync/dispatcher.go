package billingsync

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zuorasync/backend/internal/domain/integration"
	"github.com/zuorasync/backend/internal/domain/shared"
	"github.com/zuorasync/backend/internal/infrastructure/logger"
	"github.com/zuorasync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultOrderFetchDelay gives commerce read replicas time to catch up with a new order
const DefaultOrderFetchDelay = 2 * time.Second

// CustomerSyncer handles created customers
type CustomerSyncer interface {
	CustomerCreated(ctx context.Context, customer *integration.Customer) (*integration.SignupResult, error)
}

// OrderSyncer handles created orders
type OrderSyncer interface {
	OrderCreated(ctx context.Context, order *integration.Order) (*integration.OrderResult, error)
}

// ProductSyncer handles published products
type ProductSyncer interface {
	ProductPublished(ctx context.Context, product *integration.ProductProjection) (*ProductSyncReport, error)
}

// Outcome describes how a delivery was handled
type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeEmptyPayload Outcome = "empty_payload"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeNotFound     Outcome = "not_found"
)

// DispatchResult describes a handled delivery
type DispatchResult struct {
	MessageID    string
	Notification *integration.Notification
	Outcome      Outcome
	// BillingOrderNumber is set for processed order notifications
	BillingOrderNumber string
}

// DispatcherConfig holds dispatcher settings
type DispatcherConfig struct {
	// ProjectKey every notification must carry
	ProjectKey      string
	OrderFetchDelay time.Duration
	Idempotency     shared.IdempotencyConfig
}

// NotificationDispatcher routes change notifications to the sync services
type NotificationDispatcher struct {
	commerce  integration.CommercePlatform
	customers CustomerSyncer
	orders    OrderSyncer
	products  ProductSyncer
	store     shared.IdempotencyStore
	config    DispatcherConfig
	metrics   *telemetry.SyncMetrics
	logger    *zap.Logger
	wait      func(ctx context.Context, d time.Duration) error
}

// DispatcherOption configures a NotificationDispatcher
type DispatcherOption func(*NotificationDispatcher)

// WithIdempotencyStore enables de-duplication of deliveries by Pub/Sub message id
func WithIdempotencyStore(store shared.IdempotencyStore) DispatcherOption {
	return func(d *NotificationDispatcher) {
		d.store = store
	}
}

// WithSyncMetrics records notification counters
func WithSyncMetrics(m *telemetry.SyncMetrics) DispatcherOption {
	return func(d *NotificationDispatcher) {
		d.metrics = m
	}
}

// NewNotificationDispatcher creates a new NotificationDispatcher
func NewNotificationDispatcher(
	commerce integration.CommercePlatform,
	customers CustomerSyncer,
	orders OrderSyncer,
	products ProductSyncer,
	cfg DispatcherConfig,
	log *zap.Logger,
	opts ...DispatcherOption,
) *NotificationDispatcher {
	d := &NotificationDispatcher{
		commerce:  commerce,
		customers: customers,
		orders:    orders,
		products:  products,
		config:    cfg,
		logger:    log,
		wait:      sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one push delivery body. Rejected deliveries return an error
// wrapping ErrBadRequest without any downstream call being made.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, body []byte) (*DispatchResult, error) {
	log := logger.FromContextOr(ctx, d.logger)

	message, err := decodePush(body)
	if err != nil {
		return nil, err
	}
	result := &DispatchResult{MessageID: message.MessageID}

	payload, err := base64.StdEncoding.DecodeString(message.Data)
	if err != nil {
		return result, fmt.Errorf("%w: message data is not valid base64", ErrBadRequest)
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		log.Debug("Empty notification payload, nothing to do", zap.String("message_id", message.MessageID))
		result.Outcome = OutcomeEmptyPayload
		return result, nil
	}

	var notification integration.Notification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return result, fmt.Errorf("%w: notification is not valid JSON: %v", ErrBadRequest, err)
	}
	result.Notification = &notification

	if err := d.validate(&notification); err != nil {
		return result, err
	}

	resourceType := string(notification.Resource.TypeID)
	log = log.With(
		zap.String("message_id", message.MessageID),
		zap.String("resource_type", resourceType),
		zap.String("resource_id", notification.Resource.ID),
		zap.String("notification_type", string(notification.NotificationType)),
	)
	ctx = logger.WithContext(ctx, log)

	ctx, span := telemetry.StartSpan(ctx, "billingsync.dispatch",
		telemetry.WithAttribute(telemetry.SpanAttrMessageID, message.MessageID),
		telemetry.WithAttribute(telemetry.SpanAttrResourceType, resourceType),
		telemetry.WithAttribute(telemetry.SpanAttrResourceID, notification.Resource.ID),
		telemetry.WithAttribute(telemetry.SpanAttrNotificationType, string(notification.NotificationType)),
	)
	defer span.End()

	claimed, err := d.claim(ctx, log, message.MessageID)
	if err != nil {
		return result, err
	}
	if !claimed {
		log.Info("Duplicate delivery, skipping")
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	d.metrics.NotificationReceived(ctx, resourceType)
	if err := d.route(ctx, log, &notification, result); err != nil {
		telemetry.RecordError(span, err)
		d.metrics.NotificationFailed(ctx, resourceType, failureClass(err))
		d.release(ctx, log, message.MessageID)
		return result, err
	}
	return result, nil
}

func decodePush(body []byte) (*PushMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: no Pub/Sub message was received", ErrBadRequest)
	}
	var push PushRequest
	if err := json.Unmarshal(body, &push); err != nil {
		return nil, fmt.Errorf("%w: invalid Pub/Sub message format", ErrBadRequest)
	}
	if push.Message == nil {
		return nil, fmt.Errorf("%w: wrong Pub/Sub message format", ErrBadRequest)
	}
	return push.Message, nil
}

// validate applies every rejection rule that needs no downstream call
func (d *NotificationDispatcher) validate(n *integration.Notification) error {
	if n.ProjectKey != d.config.ProjectKey {
		return fmt.Errorf("%w: wrong project key", ErrBadRequest)
	}
	if !n.Resource.TypeID.IsValid() {
		return fmt.Errorf("%w: unknown message type %q", ErrBadRequest, n.Resource.TypeID)
	}
	if n.Resource.TypeID != integration.ResourceTypeProduct && n.NotificationType != integration.NotificationResourceCreated {
		return fmt.Errorf("%w: unknown notification type %q for %s", ErrBadRequest, n.NotificationType, n.Resource.TypeID)
	}
	return nil
}

func (d *NotificationDispatcher) route(ctx context.Context, log *zap.Logger, n *integration.Notification, result *DispatchResult) error {
	id := n.Resource.ID

	switch n.Resource.TypeID {
	case integration.ResourceTypeProduct:
		product, err := d.commerce.GetProductProjection(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			log.Info("Product not found, skipping")
			result.Outcome = OutcomeNotFound
			return nil
		}
		report, err := d.products.ProductPublished(ctx, product)
		if err != nil {
			return err
		}
		log.Info("Product synchronized",
			zap.Bool("skipped", report.Skipped),
			zap.Int("variants", len(report.Variants)),
			zap.Int("variants_failed", report.Failed()),
		)

	case integration.ResourceTypeCustomer:
		customer, err := d.commerce.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			log.Info("Customer not found, skipping")
			result.Outcome = OutcomeNotFound
			return nil
		}
		if _, err := d.customers.CustomerCreated(ctx, customer); err != nil {
			return err
		}

	case integration.ResourceTypeOrder:
		if err := d.wait(ctx, d.config.OrderFetchDelay); err != nil {
			return err
		}
		order, err := d.commerce.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			log.Info("Order not found, skipping")
			result.Outcome = OutcomeNotFound
			return nil
		}
		billingOrder, err := d.orders.OrderCreated(ctx, order)
		if err != nil {
			return err
		}
		result.BillingOrderNumber = billingOrder.OrderNumber
		telemetry.AddEvent(telemetry.SpanFromContext(ctx), "billing_order_created",
			"order_number", billingOrder.OrderNumber, "order_version", order.Version)
		if err := d.commerce.SetOrderNumber(ctx, order.ID, order.Version, billingOrder.OrderNumber); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: unknown message type %q", ErrBadRequest, n.Resource.TypeID)
	}

	result.Outcome = OutcomeProcessed
	return nil
}

// claim reserves messageID in the idempotency store. Store failures do not block processing.
func (d *NotificationDispatcher) claim(ctx context.Context, log *zap.Logger, messageID string) (bool, error) {
	if d.store == nil || !d.config.Idempotency.Enabled || messageID == "" {
		return true, nil
	}
	claimed, err := d.store.MarkProcessed(ctx, messageID, d.config.Idempotency.TTL)
	if err != nil {
		log.Warn("Idempotency store unavailable, processing without de-duplication", zap.Error(err))
		return true, nil
	}
	return claimed, nil
}

// release drops the claim of a failed delivery so a redelivery is not suppressed
func (d *NotificationDispatcher) release(ctx context.Context, log *zap.Logger, messageID string) {
	if d.store == nil || !d.config.Idempotency.Enabled || messageID == "" {
		return
	}
	if err := d.store.Release(context.WithoutCancel(ctx), messageID); err != nil {
		log.Warn("Failed to release delivery claim", zap.Error(err))
	}
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, integration.ErrEntityInvalid):
		return "invalid_entity"
	case errors.Is(err, integration.ErrBillingAuthFailed):
		return "billing_auth"
	case errors.Is(err, integration.ErrBillingRejected):
		return "billing_rejected"
	case errors.Is(err, integration.ErrBillingEntityNotFound):
		return "billing_not_found"
	case errors.Is(err, integration.ErrBillingRequestFailed):
		return "billing_transport"
	case errors.Is(err, integration.ErrCommerceRequestFailed):
		return "commerce"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
