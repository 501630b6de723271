// Package webhook turns provider callbacks into registry and delivery record updates.
package webhook

import (
	"net/url"
	"strings"

	"github.com/aniladanir/review-messenger-service/internal/domain"
)

// Form fields posted by the provider.
const (
	FieldMessageSID    = "MessageSid"
	FieldMessageStatus = "MessageStatus"
	FieldFrom          = "From"
	FieldTo            = "To"
	FieldBody          = "Body"
	FieldErrorCode     = "ErrorCode"
)

// Event is one classified provider callback: InboundMessage, StatusCallback or Unrecognized.
type Event interface {
	eventKind() string
}

// InboundMessage is a text a recipient sent back to the service number.
type InboundMessage struct {
	MessageSID string
	From       string
	Body       string
}

// StatusCallback reports the transport status of a message previously sent.
type StatusCallback struct {
	MessageSID string
	Status     string
	ErrorCode  string
}

// Unrecognized is a payload matching neither shape.
type Unrecognized struct {
	Fields []string
}

func (InboundMessage) eventKind() string { return "inbound" }
func (StatusCallback) eventKind() string { return "status" }
func (Unrecognized) eventKind() string   { return "unrecognized" }

// Classify decides which event a callback form carries. A MessageStatus field
// marks a status callback; From together with Body marks an inbound message.
func Classify(form url.Values) Event {
	if status := strings.TrimSpace(form.Get(FieldMessageStatus)); status != "" {
		return StatusCallback{
			MessageSID: strings.TrimSpace(form.Get(FieldMessageSID)),
			Status:     strings.ToLower(status),
			ErrorCode:  form.Get(FieldErrorCode),
		}
	}

	if form.Has(FieldFrom) && form.Has(FieldBody) {
		return InboundMessage{
			MessageSID: strings.TrimSpace(form.Get(FieldMessageSID)),
			From:       form.Get(FieldFrom),
			Body:       form.Get(FieldBody),
		}
	}

	fields := make([]string, 0, len(form))
	for k := range form {
		fields = append(fields, k)
	}
	return Unrecognized{Fields: fields}
}

var providerStatuses = map[string]domain.DeliveryStatus{
	"queued":      domain.StatusPending,
	"sent":        domain.StatusSent,
	"delivered":   domain.StatusDelivered,
	"undelivered": domain.StatusFailed,
	"failed":      domain.StatusFailed,
}

// MapStatus translates a provider status to a delivery status.
func MapStatus(providerStatus string) (domain.DeliveryStatus, bool) {
	s, ok := providerStatuses[strings.ToLower(strings.TrimSpace(providerStatus))]
	return s, ok
}
