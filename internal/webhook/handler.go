// Package webhook receives callbacks from the messaging provider: the
// hub.challenge verification handshake and delivery/status events. Events
// are acknowledged and logged; the notification pipeline itself never
// depends on them.
package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weclinic/appointment-notifier/pkg/logging"
)

// Handler serves the provider callback endpoints.
type Handler struct {
	verifyToken string
	logger      *logging.Logger
}

// NewHandler creates a webhook handler. verifyToken guards the GET
// verification handshake.
func NewHandler(verifyToken string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{verifyToken: verifyToken, logger: logger}
}

// Routes builds the router: webhook endpoints, health check and metrics.
func (h *Handler) Routes(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Get("/webhook", h.Challenge)
	r.Post("/webhook", h.Receive)
	r.Get("/healthz", h.Health)
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return r
}

// Challenge answers the provider's verification handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if token == "" || token != h.verifyToken {
		h.logger.Warn("webhook challenge rejected")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	h.logger.Info("webhook challenge accepted")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// Receive acknowledges a provider event. Non-JSON bodies are rejected;
// everything else is logged and accepted.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	var event map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &event); err != nil {
			h.logger.Warn("webhook event rejected, invalid json", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid json"})
			return
		}
	}

	h.logger.Info("webhook event received", "bytes", len(body), "keys", len(event))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
