package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zuorasync/backend/internal/application/billingsync"
	"github.com/zuorasync/backend/internal/domain/integration"
	"github.com/zuorasync/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Dispatcher processes one push delivery body
type Dispatcher interface {
	Dispatch(ctx context.Context, body []byte) (*billingsync.DispatchResult, error)
}

// EventHandler receives Pub/Sub push deliveries. Every delivery is acknowledged
// with 200 before processing so the transport never redelivers; outcomes are
// only visible in logs.
type EventHandler struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	timeout    time.Duration
	wg         sync.WaitGroup

	// abort cancels every in-flight delivery once a drain deadline passes
	abort     context.Context
	cancelAll context.CancelFunc
}

// EventHandlerOption configures an EventHandler
type EventHandlerOption func(*EventHandler)

// WithProcessingTimeout bounds the background processing of one delivery
func WithProcessingTimeout(d time.Duration) EventHandlerOption {
	return func(h *EventHandler) {
		h.timeout = d
	}
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(dispatcher Dispatcher, logger *zap.Logger, opts ...EventHandlerOption) *EventHandler {
	h := &EventHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
	h.abort, h.cancelAll = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the push endpoint
func (h *EventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/", h.Receive)
}

// Receive acknowledges a push delivery and processes it in the background
func (h *EventHandler) Receive(c *gin.Context) {
	log := logger.FromContextOr(c.Request.Context(), h.logger)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("Push delivery exceeds body limit, dropping",
				zap.Int("status", http.StatusRequestEntityTooLarge),
				zap.Int64("limit", tooLarge.Limit),
			)
			c.Status(http.StatusOK)
			return
		}
		// the connection broke mid-body; let the transport retry
		log.Error("Failed to read push delivery", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.WithoutCancel(c.Request.Context()), log))
	h.wg.Go(func() {
		stop := context.AfterFunc(h.abort, cancel)
		defer stop()
		defer cancel()
		h.process(ctx, body)
	})

	c.Status(http.StatusOK)
}

func (h *EventHandler) process(ctx context.Context, body []byte) {
	log := logger.FromContextOr(ctx, h.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing push delivery", zap.Any("error", r), zap.Stack("stacktrace"))
		}
	}()

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.dispatcher.Dispatch(ctx, body)

	fields := []zap.Field{
		zap.Int("status", billingsync.StatusCode(err)),
		zap.Duration("duration", time.Since(start)),
	}
	if result != nil {
		fields = append(fields, zap.String("message_id", result.MessageID))
		if result.Outcome != "" {
			fields = append(fields, zap.String("outcome", string(result.Outcome)))
		}
		if result.BillingOrderNumber != "" {
			fields = append(fields, zap.String("billing_order_number", result.BillingOrderNumber))
		}
	}

	switch {
	case err == nil:
		log.Info("Push delivery processed", fields...)
	case errors.Is(err, billingsync.ErrBadRequest):
		log.Warn("Push delivery rejected", append(fields, zap.Error(err))...)
	default:
		if reason := integration.ReasonOf(err); reason != "" {
			fields = append(fields, zap.String("billing_reason", reason))
		}
		log.Error("Push delivery failed", append(fields, zap.Error(err))...)
	}
}

// Wait blocks until every in-flight delivery has been processed or ctx is done.
// When ctx ends first, in-flight deliveries are cancelled and ctx's error returned.
func (h *EventHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.cancelAll()
		return ctx.Err()
	}
}
