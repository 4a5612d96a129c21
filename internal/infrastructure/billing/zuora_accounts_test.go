package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zuorasync/backend/internal/domain/integration"
)

func TestZuoraClient_CreateAccount(t *testing.T) {
	f := newFakeZuora(t)
	f.handle("POST /v1/sign-up", func(w http.ResponseWriter, r *http.Request) {
		var req integration.AccountSignup
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.AccountData.AccountNumber {
		case "cust-1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "accountId": "acc-1", "accountNumber": "cust-1"})
		case "cust-2":
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "reasons": []map[string]any{{"code": 53100020, "message": "Currency is not enabled"}}})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"success": false})
		}
	})
	client := newTestClient(t, f, nil)
	ctx := context.Background()

	result, err := client.CreateAccount(ctx, integration.AccountSignup{AccountData: integration.AccountData{AccountNumber: "cust-1"}})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", result.AccountID)

	_, err = client.CreateAccount(ctx, integration.AccountSignup{AccountData: integration.AccountData{AccountNumber: "cust-2"}})
	require.ErrorIs(t, err, integration.ErrBillingRejected)
	assert.Equal(t, "Currency is not enabled", integration.ReasonOf(err))

	_, err = client.CreateAccount(ctx, integration.AccountSignup{AccountData: integration.AccountData{AccountNumber: "cust-3"}})
	require.ErrorIs(t, err, integration.ErrBillingRejected)
	assert.Equal(t, "Failed to create account", integration.ReasonOf(err))
}

func TestZuoraClient_GetAccount(t *testing.T) {
	f := newFakeZuora(t)
	f.handle("GET /v1/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "cust-1" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "basicInfo": map[string]any{"accountNumber": "cust-1"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
	})
	client := newTestClient(t, f, nil)

	account, err := client.GetAccount(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", account.BasicInfo.AccountNumber)

	_, err = client.GetAccount(context.Background(), "cust-2")
	require.ErrorIs(t, err, integration.ErrBillingRejected)
	assert.Equal(t, "Failed to get account", integration.ReasonOf(err))
}

func TestZuoraClient_CreateOrder(t *testing.T) {
	f := newFakeZuora(t)
	f.handle("POST /v1/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer token-"))
		var req integration.OrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if len(req.Subscriptions) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "orderNumber": "O-00000042", "status": "Completed"})
	})
	client := newTestClient(t, f, nil)
	ctx := context.Background()

	result, err := client.CreateOrder(ctx, integration.OrderRequest{
		OrderNumber: "ord-1",
		Subscriptions: []integration.OrderSubscription{{OrderActions: []integration.OrderAction{{
			Type: integration.OrderActionCreateSubscription,
		}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "O-00000042", result.OrderNumber)

	_, err = client.CreateOrder(ctx, integration.OrderRequest{OrderNumber: "ord-2"})
	require.ErrorIs(t, err, integration.ErrBillingRejected)
	assert.Equal(t, "Failed to create order", integration.ReasonOf(err))
}
