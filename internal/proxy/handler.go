package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jadonwu-dev/axwise/internal/observability/metrics"
	"github.com/jadonwu-dev/axwise/pkg/logging"
)

// ErrorEnvelope is the JSON body returned when the backend answers with a
// non-2xx status or the forward fails outright.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler forwards research API requests to the analysis backend, attaching
// the service bearer token and relaying responses.
type Handler struct {
	client  *Client
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics
}

// NewHandler creates a proxy handler around the backend client.
func NewHandler(client *Client, logger *logging.Logger, m *metrics.GatewayMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{client: client, logger: logger, metrics: m}
}

// Routes mounts the proxied research endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/research/sessions", func(r chi.Router) {
		r.Get("/", h.forward("sessions", "Failed to fetch sessions"))
		r.Post("/", h.forward("sessions", "Failed to create session"))
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.forward("session", "Failed to fetch session"))
			r.Put("/", h.forward("session", "Failed to update session"))
			r.Delete("/", h.forward("session", "Failed to delete session"))
			r.Get("/questionnaire", h.forward("questionnaire", "Failed to fetch questionnaire"))
			r.Post("/questionnaire", h.forward("questionnaire", "Failed to generate questionnaire"))
			r.Get("/messages", h.forward("messages", "Failed to fetch session messages"))
			r.Post("/messages", h.forward("messages", "Failed to send message"))
		})
	})
	r.Get("/history", h.forward("history", "Failed to fetch history"))
	return r
}

// forward builds a pass-through handler for a proxied route. The backend
// path is the request path itself; 2xx responses are relayed verbatim and
// anything else is wrapped in an error envelope with the upstream status.
func (h *Handler) forward(route, errMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			data, err := io.ReadAll(r.Body)
			if err != nil {
				h.logger.Error("failed to read request body", "route", route, "error", err)
				h.writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
				h.metrics.ObserveProxyRequest(route, r.Method, "500")
				return
			}
			if len(data) > 0 {
				body = data
			}
		}

		// The gateway mirrors the backend's path space, so the request path
		// forwards unchanged.
		resp, err := h.client.Do(r.Context(), r.Method, r.URL.Path, r.URL.Query(), body, r.Header.Get("Content-Type"))
		if err != nil {
			h.logger.Error("backend request failed", "route", route, "method", r.Method, "error", err)
			h.writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
			h.metrics.ObserveProxyRequest(route, r.Method, "500")
			return
		}

		h.metrics.ObserveProxyRequest(route, r.Method, strconv.Itoa(resp.StatusCode))

		if !resp.OK() {
			h.logger.Warn("backend returned error status",
				"route", route,
				"method", r.Method,
				"status", resp.StatusCode,
			)
			h.writeError(w, resp.StatusCode, errMsg, string(resp.Body))
			return
		}

		ct := resp.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(resp.StatusCode)
		w.Write(resp.Body)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorEnvelope{Error: msg, Details: details})
}
