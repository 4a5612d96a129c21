package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrResourceType = attribute.Key("resource_type")
	AttrOutcome      = attribute.Key("outcome")
	AttrMethod       = attribute.Key("method")
	AttrEndpoint     = attribute.Key("endpoint")
	AttrStatusClass  = attribute.Key("status_class")
	AttrAction       = attribute.Key("action")
)

// Counter wraps an Int64Counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a counter on meter
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Inc adds one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps a Float64Histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a histogram with explicit bucket boundaries
func NewHistogram(meter metric.Meter, name, description, unit string, buckets []float64) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return &Histogram{histogram: h}, nil
}

// RecordDuration records d in seconds
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// SyncMetrics are the relay's counters and latency histograms.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	notificationsReceived *Counter
	notificationsFailed   *Counter
	variantsSynced        *Counter
	billingDuration       *Histogram
}

// NewSyncMetrics registers the relay instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	received, err := NewCounter(meter, "sync.notifications.received", "Change notifications accepted for processing", "{notification}")
	if err != nil {
		return nil, err
	}
	failed, err := NewCounter(meter, "sync.notifications.failed", "Change notifications whose processing failed", "{notification}")
	if err != nil {
		return nil, err
	}
	variants, err := NewCounter(meter, "sync.variants.synced", "Product variants reconciled into the billing catalog", "{variant}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, "sync.billing.request.duration", "Latency of billing platform API calls", "s",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	if err != nil {
		return nil, err
	}
	return &SyncMetrics{
		notificationsReceived: received,
		notificationsFailed:   failed,
		variantsSynced:        variants,
		billingDuration:       duration,
	}, nil
}

// NotificationReceived counts a notification of resourceType
func (m *SyncMetrics) NotificationReceived(ctx context.Context, resourceType string) {
	if m == nil {
		return
	}
	m.notificationsReceived.Inc(ctx, AttrResourceType.String(resourceType))
}

// NotificationFailed counts a failed notification with its outcome class
func (m *SyncMetrics) NotificationFailed(ctx context.Context, resourceType, outcome string) {
	if m == nil {
		return
	}
	m.notificationsFailed.Inc(ctx, AttrResourceType.String(resourceType), AttrOutcome.String(outcome))
}

// VariantSynced counts a reconciled variant by action and outcome
func (m *SyncMetrics) VariantSynced(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	m.variantsSynced.Inc(ctx, AttrAction.String(action), AttrOutcome.String(outcome))
}

// BillingRequest records the latency of a billing API call
func (m *SyncMetrics) BillingRequest(ctx context.Context, method, endpoint string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.billingDuration.RecordDuration(ctx, d,
		AttrMethod.String(method),
		AttrEndpoint.String(endpoint),
		AttrStatusClass.String(statusClass(statusCode)),
	)
}

func statusClass(code int) string {
	if code == 0 {
		return "error"
	}
	return fmt.Sprintf("%dxx", code/100)
}
