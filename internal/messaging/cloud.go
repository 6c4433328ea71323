package messaging

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var cloudSendTracer = otel.Tracer("notifier.internal.messaging.cloud_send")

// CloudSender posts text messages through the WhatsApp Cloud API.
type CloudSender struct {
	apiURL     string
	auth       string
	httpClient *http.Client
}

// NewCloudSender builds a WhatsApp Cloud adapter. auth is the full
// "Bearer ..." token value.
func NewCloudSender(apiURL, auth string, timeout time.Duration) *CloudSender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CloudSender{
		apiURL: apiURL,
		auth:   auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Channel = (*CloudSender)(nil)

type cloudPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send posts one text message.
func (s *CloudSender) Send(ctx context.Context, msg Message) error {
	ctx, span := cloudSendTracer.Start(ctx, "messaging.cloud.send")
	defer span.End()

	payload := cloudPayload{
		MessagingProduct: "whatsapp",
		To:               NormalizePhone(msg.To),
		Type:             "text",
	}
	payload.Text.Body = msg.Body
	span.SetAttributes(attribute.String("notifier.to", payload.To))

	req, err := newJSONRequest(ctx, s.apiURL, payload)
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Authorization", s.auth)

	if err := doSend(s.httpClient, req); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
