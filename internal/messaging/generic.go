package messaging

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var genericSendTracer = otel.Tracer("notifier.internal.messaging.generic_send")

// GenericSender posts to any webhook accepting a {to, text} JSON body.
type GenericSender struct {
	apiURL     string
	auth       string
	httpClient *http.Client
}

// NewGenericSender builds the fallback adapter. auth, when set, is sent
// verbatim as the Authorization header.
func NewGenericSender(apiURL, auth string, timeout time.Duration) *GenericSender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GenericSender{
		apiURL: apiURL,
		auth:   auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Channel = (*GenericSender)(nil)

type genericPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send posts one text message.
func (s *GenericSender) Send(ctx context.Context, msg Message) error {
	ctx, span := genericSendTracer.Start(ctx, "messaging.generic.send")
	defer span.End()
	span.SetAttributes(attribute.String("notifier.to", msg.To))

	req, err := newJSONRequest(ctx, s.apiURL, genericPayload{To: msg.To, Text: msg.Body})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if s.auth != "" {
		req.Header.Set("Authorization", s.auth)
	}

	if err := doSend(s.httpClient, req); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// NewChannel builds the adapter named by provider.
func NewChannel(provider, apiURL, auth string, timeout time.Duration) (Channel, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("messaging: sender API URL not configured")
	}
	switch provider {
	case ProviderEvolution:
		return NewEvolutionSender(apiURL, auth, timeout), nil
	case ProviderWhatsAppCloud:
		return NewCloudSender(apiURL, auth, timeout), nil
	case ProviderGeneric, "":
		return NewGenericSender(apiURL, auth, timeout), nil
	default:
		return nil, fmt.Errorf("messaging: unknown provider %q", provider)
	}
}
