// Package webhook delivers rule change events to subscribed endpoints.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/erp/pricing/internal/domain/webhook"
)

// Header names carried on every delivery
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
)

const defaultSendTimeout = 10 * time.Second

// Sender performs one delivery attempt
type Sender interface {
	Send(ctx context.Context, sub *webhook.Subscription, delivery *webhook.Delivery) error
}

// HTTPSender posts deliveries over HTTP. The payload is signed with the
// subscription's secret; receivers verify the signature and deduplicate on
// the delivery header.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender creates a sender with the given client. A nil client gets
// a default with a 10 second timeout.
func NewHTTPSender(client *http.Client) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: defaultSendTimeout}
	}
	return &HTTPSender{client: client}
}

// Send posts the delivery payload to the subscription endpoint. Any
// non-2xx response is a failed attempt.
func (s *HTTPSender) Send(ctx context.Context, sub *webhook.Subscription, delivery *webhook.Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, sub.Sign(delivery.Payload))
	req.Header.Set(HeaderEvent, delivery.EventType)
	req.Header.Set(HeaderDelivery, delivery.EventID.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
