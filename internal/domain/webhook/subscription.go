package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
)

// secretBytes is the entropy of a generated signing secret
const secretBytes = 32

// Subscription registers an external endpoint interested in rule change
// events. Each subscription carries its own signing secret; rotating one
// endpoint's secret never affects another.
type Subscription struct {
	shared.TenantAggregateRoot
	Name        string   `gorm:"type:varchar(200);not null"`
	URL         string   `gorm:"type:varchar(500);not null"`
	EventTypes  []string `gorm:"serializer:json;type:jsonb"`
	Secret      string   `gorm:"type:varchar(64);not null"`
	IsActive    bool     `gorm:"not null;default:true;index"`
	MaxAttempts int      `gorm:"not null;default:5"`
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "webhook_subscriptions"
}

// NewSubscription creates a subscription with a freshly generated secret
func NewSubscription(tenantID uuid.UUID, name, endpoint string, eventTypes []string) (*Subscription, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		URL:                 strings.TrimSpace(endpoint),
		EventTypes:          eventTypes,
		Secret:              secret,
		IsActive:            true,
		MaxAttempts:         DefaultMaxAttempts,
	}
	if err := sub.validate(); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Subscription) validate() error {
	if s.Name == "" {
		return shared.NewDomainError("INVALID_SUBSCRIPTION", "subscription name cannot be empty")
	}
	parsed, err := url.Parse(s.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return shared.NewDomainError("INVALID_SUBSCRIPTION", "endpoint must be an absolute http(s) URL")
	}
	if len(s.EventTypes) == 0 {
		return shared.NewDomainError("INVALID_SUBSCRIPTION", "subscription must select at least one event type")
	}
	return nil
}

// SubscribesTo reports whether the subscription wants the given event type
func (s *Subscription) SubscribesTo(eventType string) bool {
	if !s.IsActive {
		return false
	}
	for _, t := range s.EventTypes {
		if t == eventType || t == "*" {
			return true
		}
	}
	return false
}

// Update replaces the endpoint and event selection. The secret is kept;
// rotation is a separate, explicit operation.
func (s *Subscription) Update(name, endpoint string, eventTypes []string) error {
	snapshot := *s
	s.Name = strings.TrimSpace(name)
	s.URL = strings.TrimSpace(endpoint)
	s.EventTypes = eventTypes
	if err := s.validate(); err != nil {
		*s = snapshot
		return err
	}
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// RotateSecret replaces the signing secret. In-flight deliveries signed
// with the old secret will fail verification and be retried with the new one.
func (s *Subscription) RotateSecret() error {
	secret, err := generateSecret()
	if err != nil {
		return err
	}
	s.Secret = secret
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// Toggle flips the active flag
func (s *Subscription) Toggle() {
	s.IsActive = !s.IsActive
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// Sign computes the payload signature delivered in the X-Webhook-Signature
// header, in the form "sha256=<hex>".
func (s *Subscription) Sign(payload []byte) string {
	return Sign(s.Secret, payload)
}

// Sign computes an HMAC-SHA256 signature over the payload
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature in constant time
func VerifySignature(secret string, payload []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(signature))
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
