package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zuorasync/backend/internal/domain/integration"
	"go.uber.org/zap/zaptest"
)

type fakeCommercetools struct {
	*httptest.Server
	mux        *http.ServeMux
	tokenCalls atomic.Int32
}

func newFakeCommercetools(t *testing.T) *fakeCommercetools {
	t.Helper()
	f := &fakeCommercetools{mux: http.NewServeMux()}
	f.mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ct-client", user)
		assert.Equal(t, "ct-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "manage_project:shop", r.PostForm.Get("scope"))
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "ct-token", "token_type": "Bearer", "expires_in": 172800})
	})
	f.Server = httptest.NewServer(f.mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCommercetools) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ct-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestAdapter(t *testing.T, f *fakeCommercetools) *CommercetoolsAdapter {
	t.Helper()
	adapter, err := NewCommercetoolsAdapter(&CommercetoolsConfig{
		ProjectKey:   "shop",
		ClientID:     "ct-client",
		ClientSecret: "ct-secret",
		Scopes:       []string{"manage_project:shop"},
		APIURL:       f.URL,
		AuthURL:      f.URL,
	}, zaptest.NewLogger(t), WithBaseHTTPClient(f.Client()))
	require.NoError(t, err)
	return adapter
}

func TestCommercetoolsConfig_Validate(t *testing.T) {
	cfg := CommercetoolsConfig{ProjectKey: "shop", ClientID: "id", ClientSecret: "secret", APIURL: "https://api.example.com", AuthURL: "https://auth.example.com"}
	assert.NoError(t, cfg.Validate())

	cfg.ProjectKey = ""
	cfg.AuthURL = ""
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrCommercetoolsConfigInvalid)
	assert.Contains(t, err.Error(), "ProjectKey")
	assert.Contains(t, err.Error(), "AuthURL")
}

func TestCommercetoolsAdapter_GetProductProjection(t *testing.T) {
	f := newFakeCommercetools(t)
	f.handle("GET /shop/product-projections", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("where") != `id="prod-1"` {
			writeJSON(w, http.StatusOK, map[string]any{"results": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": []map[string]any{{
			"id":      "prod-1",
			"version": 7,
			"masterVariant": map[string]any{
				"id":  1,
				"sku": "gold-monthly",
				"prices": []map[string]any{{
					"id":    "price-1",
					"value": map[string]any{"type": "centPrecision", "currencyCode": "USD", "centAmount": 1999, "fractionDigits": 2},
				}},
				"attributes": []map[string]any{
					{"name": "sellable", "value": true},
					{"name": "variant-description", "value": map[string]any{"en-US": "Gold monthly"}},
				},
			},
			"variants": []map[string]any{{"id": 2, "sku": "gold-yearly"}},
		}}})
	})
	adapter := newTestAdapter(t, f)
	ctx := context.Background()

	product, err := adapter.GetProductProjection(ctx, "prod-1")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, int64(7), product.Version)
	assert.Equal(t, "gold-monthly", product.MasterVariant.SKU)
	assert.Equal(t, int64(1999), product.MasterVariant.Prices[0].Value.CentAmount)
	assert.True(t, integration.ValidProduct(product))
	desc, ok := product.MasterVariant.StringAttribute(integration.AttributeVariantDescription)
	assert.True(t, ok)
	assert.Equal(t, "Gold monthly", desc)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, "gold-yearly", product.Variants[0].SKU)

	missing, err := adapter.GetProductProjection(ctx, "prod-404")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestCommercetoolsAdapter_GetCustomerAndOrder(t *testing.T) {
	f := newFakeCommercetools(t)
	f.handle("GET /shop/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "cust-1" {
			writeJSON(w, http.StatusNotFound, map[string]any{"statusCode": 404})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "cust-1", "version": 2, "email": "jane@example.com", "firstName": "Jane", "lastName": "Doe",
			"addresses": []map[string]any{{"country": "DE", "state": "BE"}},
		})
	})
	f.handle("GET /shop/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "ord-1":
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "ord-1", "version": 4, "customerId": "cust-1", "customerEmail": "jane@example.com",
				"billingAddress": map[string]any{"firstName": "Jane", "country": "DE"},
				"lineItems": []map[string]any{
					{"id": "li-1", "productId": "prod-1", "quantity": 1, "variant": map[string]any{"sku": "gold-monthly"}},
					{"id": "li-2", "productId": "prod-2", "quantity": 2, "variant": map[string]any{"sku": "silver-monthly"}},
				},
			})
		case "ord-500":
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	adapter := newTestAdapter(t, f)
	ctx := context.Background()

	customer, err := adapter.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, integration.ValidCustomer(customer))

	customer, err = adapter.GetCustomer(ctx, "cust-404")
	require.NoError(t, err)
	assert.Nil(t, customer)

	order, err := adapter.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, int64(4), order.Version)
	assert.True(t, integration.ValidOrder(order))
	require.Len(t, order.LineItems, 2)
	assert.Equal(t, "silver-monthly", order.LineItems[1].Variant.SKU)

	order, err = adapter.GetOrder(ctx, "ord-404")
	require.NoError(t, err)
	assert.Nil(t, order)

	_, err = adapter.GetOrder(ctx, "ord-500")
	assert.ErrorIs(t, err, integration.ErrCommerceRequestFailed)
}

func TestCommercetoolsAdapter_SetOrderNumber(t *testing.T) {
	f := newFakeCommercetools(t)
	var update map[string]any
	f.handle("POST /shop/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "ord-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		writeJSON(w, http.StatusOK, map[string]any{"id": "ord-1", "version": 5})
	})
	adapter := newTestAdapter(t, f)

	require.NoError(t, adapter.SetOrderNumber(context.Background(), "ord-1", 4, "O-00000042"))
	assert.Equal(t, float64(4), update["version"])
	actions := update["actions"].([]any)
	require.Len(t, actions, 1)
	assert.Equal(t, map[string]any{"action": "setOrderNumber", "orderNumber": "O-00000042"}, actions[0])

	err := adapter.SetOrderNumber(context.Background(), "ord-2", 1, "O-1")
	assert.ErrorIs(t, err, integration.ErrCommerceRequestFailed)
}

func TestCommercetoolsAdapter_ReplaceSubscription(t *testing.T) {
	f := newFakeCommercetools(t)
	var deletedVersion string
	var draft map[string]any
	exists := true
	f.handle("GET /shop/subscriptions/{key}", func(w http.ResponseWriter, r *http.Request) {
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "key=billing-sync", r.PathValue("key"))
		writeJSON(w, http.StatusOK, map[string]any{"id": "sub-1", "key": "billing-sync", "version": 3})
	})
	f.handle("DELETE /shop/subscriptions/{key}", func(w http.ResponseWriter, r *http.Request) {
		deletedVersion = r.URL.Query().Get("version")
		exists = false
		writeJSON(w, http.StatusOK, map[string]any{"id": "sub-1"})
	})
	f.handle("POST /shop/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		writeJSON(w, http.StatusCreated, map[string]any{"id": "sub-2", "key": "billing-sync", "version": 1})
	})
	adapter := newTestAdapter(t, f)
	ctx := context.Background()

	sub, err := adapter.ReplaceSubscription(ctx, "billing-sync", PubSubDestination{ProjectID: "gcp-proj", Topic: "ct-changes"})
	require.NoError(t, err)
	assert.Equal(t, "sub-2", sub.ID)
	assert.Equal(t, "3", deletedVersion)
	assert.Equal(t, map[string]any{"type": "GoogleCloudPubSub", "topic": "ct-changes", "projectId": "gcp-proj"}, draft["destination"])
	assert.Equal(t, []any{}, draft["messages"])
	assert.Len(t, draft["changes"], 3)

	// nothing left to delete
	require.NoError(t, adapter.DeleteSubscription(ctx, "billing-sync"))
}
