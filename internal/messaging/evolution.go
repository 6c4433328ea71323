package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var evolutionSendTracer = otel.Tracer("notifier.internal.messaging.evolution_send")

// EvolutionSender posts text messages to an Evolution API instance.
type EvolutionSender struct {
	apiURL     string
	auth       string
	httpClient *http.Client
}

// NewEvolutionSender builds an Evolution adapter. auth is either a bare api
// key (sent as the apikey header) or a full "Bearer ..." value.
func NewEvolutionSender(apiURL, auth string, timeout time.Duration) *EvolutionSender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EvolutionSender{
		apiURL: apiURL,
		auth:   auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Channel = (*EvolutionSender)(nil)

type evolutionPayload struct {
	Number      string `json:"number"`
	TextMessage struct {
		Text string `json:"text"`
	} `json:"textMessage"`
}

// Send posts one text message. Evolution expects the number with country
// code and no punctuation.
func (s *EvolutionSender) Send(ctx context.Context, msg Message) error {
	ctx, span := evolutionSendTracer.Start(ctx, "messaging.evolution.send")
	defer span.End()

	payload := evolutionPayload{Number: brazilianNumber(msg.To)}
	payload.TextMessage.Text = msg.Body
	span.SetAttributes(attribute.String("notifier.to", payload.Number))

	req, err := newJSONRequest(ctx, s.apiURL, payload)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if s.auth != "" {
		if strings.HasPrefix(s.auth, "Bearer ") {
			req.Header.Set("Authorization", s.auth)
		} else {
			req.Header.Set("apikey", s.auth)
		}
	}

	if err := doSend(s.httpClient, req); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func newJSONRequest(ctx context.Context, apiURL string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("messaging: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("messaging: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doSend(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: send: %w", err)
	}
	defer resp.Body.Close()

	if accepted(resp.StatusCode) {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
