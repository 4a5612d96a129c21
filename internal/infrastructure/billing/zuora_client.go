package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zuorasync/backend/internal/domain/integration"
	"github.com/zuorasync/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// maxZuoraResponseSize limits response bodies read from the billing platform
	maxZuoraResponseSize = 10 * 1024 * 1024

	// tokenExpiryBuffer is subtracted from expires_in so a token is refreshed before it lapses
	tokenExpiryBuffer = 60 * time.Second

	// defaultTokenLifetime applies when the grant response omits expires_in
	defaultTokenLifetime = 3600

	tokenPath = "/oauth/token"
)

// ZuoraClient is the authenticated gateway to the billing platform REST API.
// The access token is shared by every caller; concurrent refreshes collapse
// into a single grant request.
type ZuoraClient struct {
	config     *ZuoraConfig
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *telemetry.SyncMetrics
	now        func() time.Time

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	refresh     singleflight.Group
}

// ZuoraClientOption configures a ZuoraClient
type ZuoraClientOption func(*ZuoraClient)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) ZuoraClientOption {
	return func(c *ZuoraClient) {
		c.httpClient = client
	}
}

// WithClock overrides the time source used for token expiry
func WithClock(now func() time.Time) ZuoraClientOption {
	return func(c *ZuoraClient) {
		c.now = now
	}
}

// WithMetrics records billing request latency
func WithMetrics(m *telemetry.SyncMetrics) ZuoraClientOption {
	return func(c *ZuoraClient) {
		c.metrics = m
	}
}

// NewZuoraClient creates a client for the configured billing tenant
func NewZuoraClient(cfg *ZuoraConfig, logger *zap.Logger, opts ...ZuoraClientOption) (*ZuoraClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ZuoraClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger.Named("zuora"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ensureValidToken returns the cached token, authenticating first when none is
// held or the held one has reached its expiry.
func (c *ZuoraClient) ensureValidToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, expiresAt := c.accessToken, c.expiresAt
	c.mu.RUnlock()

	if token != "" && c.now().Before(expiresAt) {
		return token, nil
	}

	v, err, _ := c.refresh.Do("token", func() (any, error) {
		// A caller that lost the race to an in-flight refresh may arrive after it finished.
		c.mu.RLock()
		token, expiresAt := c.accessToken, c.expiresAt
		c.mu.RUnlock()
		if token != "" && c.now().Before(expiresAt) {
			return token, nil
		}
		return c.authenticate(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// authenticate performs the client-credentials grant and stores the token
// with expiry now + (expires_in - 60s).
func (c *ZuoraClient) authenticate(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.baseURL()+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("zuora: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.BillingRequest(ctx, http.MethodPost, tokenPath, 0, time.Since(start))
		return "", &integration.BillingError{Kind: integration.ErrBillingAuthFailed, Method: http.MethodPost, Path: tokenPath, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.BillingRequest(ctx, http.MethodPost, tokenPath, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxZuoraResponseSize))
	if err != nil {
		return "", &integration.BillingError{Kind: integration.ErrBillingAuthFailed, Method: http.MethodPost, Path: tokenPath, Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &integration.BillingError{
			Kind:       integration.ErrBillingAuthFailed,
			Method:     http.MethodPost,
			Path:       tokenPath,
			StatusCode: resp.StatusCode,
			Payload:    string(body),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		if err == nil {
			err = fmt.Errorf("empty access token")
		}
		return "", &integration.BillingError{Kind: integration.ErrBillingAuthFailed, Method: http.MethodPost, Path: tokenPath, Payload: string(body), Err: err}
	}

	lifetime := tr.ExpiresIn
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	expiresAt := c.now().Add(time.Duration(lifetime)*time.Second - tokenExpiryBuffer)

	c.mu.Lock()
	c.accessToken = tr.AccessToken
	c.expiresAt = expiresAt
	c.mu.Unlock()

	c.logger.Debug("Obtained billing access token", zap.Time("expires_at", expiresAt))
	return tr.AccessToken, nil
}

// doRequest issues an authenticated JSON call. endpoint labels the call in
// metrics and spans so ids do not explode metric cardinality.
func (c *ZuoraClient) doRequest(ctx context.Context, method, path, endpoint string, body, out any) error {
	ctx, span := telemetry.StartSpan(ctx, "zuora."+method,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrBillingPath, endpoint),
	)
	defer span.End()

	err := c.send(ctx, method, path, endpoint, body, out)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

func (c *ZuoraClient) send(ctx context.Context, method, path, endpoint string, body, out any) error {
	token, err := c.ensureValidToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("zuora: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.baseURL()+path, reader)
	if err != nil {
		return fmt.Errorf("zuora: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.BillingRequest(ctx, method, endpoint, 0, time.Since(start))
		return &integration.BillingError{Kind: integration.ErrBillingRequestFailed, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.BillingRequest(ctx, method, endpoint, resp.StatusCode, time.Since(start))
	telemetry.SetAttributes(telemetry.SpanFromContext(ctx), telemetry.SpanAttrBillingStatus, resp.StatusCode)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxZuoraResponseSize))
	if err != nil {
		return &integration.BillingError{Kind: integration.ErrBillingRequestFailed, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 400 {
		c.logger.Error("Billing request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return &integration.BillingError{
			Kind:       integration.ErrBillingRequestFailed,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Payload:    string(respBody),
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(respBody, &envelope); err == nil && len(envelope.Errors) > 0 {
		return &integration.BillingError{
			Kind:       integration.ErrBillingRejected,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Payload:    string(respBody),
			Reason:     envelope.Errors[0].Message,
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &integration.BillingError{
				Kind:       integration.ErrBillingRequestFailed,
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Payload:    string(respBody),
				Err:        fmt.Errorf("decode response: %w", err),
			}
		}
	}
	return nil
}
