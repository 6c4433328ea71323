// Package messaging sends composed notifications to patient phones through a
// configurable WhatsApp-style HTTP provider. Adapters own the per-provider
// payload shape; the Dispatcher owns retries and outcome classification and
// works with any Channel.
package messaging

import (
	"context"
	"fmt"
)

// Message is a fully composed notification addressed to a phone number.
// To holds digits only; adapters apply provider-specific formatting.
type Message struct {
	To   string
	Body string
}

// Channel delivers one message. A nil error means the provider accepted the
// message; failures carry a *StatusError when the provider answered with a
// non-2xx status, or a transport error otherwise.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// StatusError is a non-success provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("messaging: provider status %d", e.StatusCode)
	}
	return fmt.Sprintf("messaging: provider status %d: %s", e.StatusCode, e.Body)
}

// Provider names accepted by NewChannel.
const (
	ProviderEvolution     = "evolution"
	ProviderWhatsAppCloud = "whatsapp_cloud"
	ProviderGeneric       = "generic"
)

// accepted reports whether a provider status code counts as delivered.
func accepted(status int) bool {
	return status == 200 || status == 201 || status == 202
}
