package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingDelivery(t *testing.T, endpoint string, payload []byte) (*webhook.Subscription, *webhook.Delivery) {
	t.Helper()
	sub, err := webhook.NewSubscription(uuid.New(), "test", endpoint, []string{"RULE_CREATED"})
	require.NoError(t, err)
	event := shared.NewBaseDomainEvent("RULE_CREATED", "PriceRule", uuid.New(), sub.TenantID)
	return sub, webhook.NewDelivery(sub, &event, payload)
}

func TestHTTPSender_SignsAndDelivers(t *testing.T) {
	payload := []byte(`{"event_type":"RULE_CREATED"}`)

	var gotBody []byte
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sub, delivery := pendingDelivery(t, server.URL, payload)
	err := NewHTTPSender(server.Client()).Send(context.Background(), sub, delivery)
	require.NoError(t, err)

	assert.Equal(t, payload, gotBody)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "RULE_CREATED", gotHeaders.Get(HeaderEvent))
	assert.Equal(t, delivery.EventID.String(), gotHeaders.Get(HeaderDelivery))

	signature := gotHeaders.Get(HeaderSignature)
	require.NotEmpty(t, signature)
	assert.True(t, webhook.VerifySignature(sub.Secret, payload, signature))
}

func TestHTTPSender_NonSuccessStatusIsError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		sub, delivery := pendingDelivery(t, server.URL, []byte(`{}`))
		err := NewHTTPSender(server.Client()).Send(context.Background(), sub, delivery)
		assert.Error(t, err, "status %d must fail the attempt", status)
		server.Close()
	}
}

func TestHTTPSender_ConnectionRefused(t *testing.T) {
	sub, delivery := pendingDelivery(t, "http://127.0.0.1:1/hooks", []byte(`{}`))
	err := NewHTTPSender(nil).Send(context.Background(), sub, delivery)
	assert.Error(t, err)
}
