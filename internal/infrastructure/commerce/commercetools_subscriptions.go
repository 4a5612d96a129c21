package commerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zuorasync/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// PubSubDestination identifies the Google Cloud Pub/Sub topic receiving change notifications
type PubSubDestination struct {
	ProjectID string
	Topic     string
}

// GetSubscription returns the subscription with key, or nil when none exists
func (a *CommercetoolsAdapter) GetSubscription(ctx context.Context, key string) (*Subscription, error) {
	var sub Subscription
	found, err := a.doRequest(ctx, http.MethodGet, "/subscriptions/key="+url.PathEscape(key), nil, &sub)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return &sub, nil
}

// DeleteSubscription removes the subscription with key if it exists
func (a *CommercetoolsAdapter) DeleteSubscription(ctx context.Context, key string) error {
	sub, err := a.GetSubscription(ctx, key)
	if err != nil {
		return err
	}
	if sub == nil {
		a.logger.Info("Subscription not present, nothing to delete", zap.String("key", key))
		return nil
	}
	if _, err := a.doRequest(ctx, http.MethodDelete, "/subscriptions/key="+url.PathEscape(key)+versionQuery(sub.Version), nil, nil); err != nil {
		return fmt.Errorf("delete subscription %s: %w", key, err)
	}
	a.logger.Info("Deleted subscription", zap.String("key", key), zap.Int64("version", sub.Version))
	return nil
}

// ReplaceSubscription deletes any subscription with key and creates a new one
// delivering product, customer and order changes to dest.
func (a *CommercetoolsAdapter) ReplaceSubscription(ctx context.Context, key string, dest PubSubDestination) (*Subscription, error) {
	if err := a.DeleteSubscription(ctx, key); err != nil {
		return nil, err
	}

	draft := ctSubscriptionDraft{
		Key: key,
		Destination: ctDestination{
			Type:      "GoogleCloudPubSub",
			Topic:     dest.Topic,
			ProjectID: dest.ProjectID,
		},
		Messages: []any{},
		Changes: []ctChangeSubscription{
			{ResourceTypeID: string(integration.ResourceTypeOrder)},
			{ResourceTypeID: string(integration.ResourceTypeProduct)},
			{ResourceTypeID: string(integration.ResourceTypeCustomer)},
		},
	}

	var sub Subscription
	if _, err := a.doRequest(ctx, http.MethodPost, "/subscriptions", draft, &sub); err != nil {
		return nil, fmt.Errorf("create subscription %s: %w", key, err)
	}
	a.logger.Info("Created subscription",
		zap.String("key", key),
		zap.String("topic", dest.Topic),
		zap.String("gcp_project", dest.ProjectID),
	)
	return &sub, nil
}
