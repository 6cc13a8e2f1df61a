package analysis

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jadonwu-dev/axwise/internal/history"
	"github.com/jadonwu-dev/axwise/internal/observability/metrics"
	"github.com/jadonwu-dev/axwise/internal/proxy"
	"github.com/jadonwu-dev/axwise/internal/sentiment"
	"github.com/jadonwu-dev/axwise/pkg/logging"
)

// Handler serves validated analysis results. When the backend result has no
// usable sentiment statements, the heuristic classifier recomputes them from
// the session transcript before the response goes out.
type Handler struct {
	client     *proxy.Client
	classifier *sentiment.Classifier
	store      *history.Store
	logger     *logging.Logger
	metrics    *metrics.GatewayMetrics
}

// NewHandler creates an analysis handler.
func NewHandler(client *proxy.Client, classifier *sentiment.Classifier, store *history.Store, logger *logging.Logger, m *metrics.GatewayMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if classifier == nil {
		classifier = sentiment.New(sentiment.DefaultConfig(), logger)
	}
	return &Handler{
		client:     client,
		classifier: classifier,
		store:      store,
		logger:     logger,
		metrics:    m,
	}
}

// GetResults handles GET /api/research/sessions/{sessionID}/analysis.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	resp, err := h.client.Get(r.Context(), "/api/research/sessions/"+sessionID+"/analysis", nil)
	if err != nil {
		h.logger.Error("failed to fetch analysis results", "session_id", sessionID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if !resp.OK() {
		h.writeError(w, resp.StatusCode, "Failed to fetch analysis results", string(resp.Body))
		return
	}

	result, err := ParseResult(resp.Body, sessionID)
	if err != nil {
		h.logger.Error("invalid analysis payload from backend", "session_id", sessionID, "error", err)
		h.writeError(w, http.StatusBadGateway, "Invalid analysis payload", err.Error())
		return
	}

	if needed, reason := result.NeedsSentimentFallback(); needed {
		h.applyFallback(r, result, sessionID, reason)
	}

	h.recordRun(r, sessionID, result.FallbackUsed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// applyFallback recomputes sentiment statements from the session transcript.
// Failures leave the result as the backend delivered it.
func (h *Handler) applyFallback(r *http.Request, result *Result, sessionID, reason string) {
	text, err := h.fetchTranscript(r, sessionID)
	if err != nil {
		h.logger.Warn("sentiment fallback skipped, transcript unavailable",
			"session_id", sessionID,
			"error", err,
		)
		return
	}

	buckets := h.classifier.Classify(r.Context(), text)
	if result.Sentiment == nil {
		result.Sentiment = &SentimentSummary{}
	}
	result.Sentiment.Statements = buckets
	result.FallbackUsed = true

	h.metrics.ObserveSentimentFallback(reason)
	h.logger.Info("heuristic sentiment fallback applied",
		"session_id", sessionID,
		"reason", reason,
	)
}

// fetchTranscript pulls the session messages and flattens them to text.
func (h *Handler) fetchTranscript(r *http.Request, sessionID string) (string, error) {
	resp, err := h.client.Get(r.Context(), "/api/research/sessions/"+sessionID+"/messages", nil)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &proxy.StatusError{StatusCode: resp.StatusCode}
	}
	return flattenMessages(resp.Body), nil
}

// flattenMessages accepts either {"messages":[...]} or a bare array of
// {role, content} objects and joins the contents line by line.
func flattenMessages(data []byte) string {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	var wrapper struct {
		Messages []message `json:"messages"`
	}
	var msgs []message
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Messages) > 0 {
		msgs = wrapper.Messages
	} else {
		var bare []message
		if err := json.Unmarshal(data, &bare); err == nil {
			msgs = bare
		}
	}

	var sb strings.Builder
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (h *Handler) recordRun(r *http.Request, sessionID string, fallbackUsed bool) {
	err := h.store.RecordRun(r.Context(), history.Record{
		SessionID:    sessionID,
		Kind:         history.KindAnalysis,
		Status:       "completed",
		FallbackUsed: fallbackUsed,
	})
	if err != nil {
		// History is best-effort; the response still goes out.
		h.logger.Warn("failed to record analysis run", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(proxy.ErrorEnvelope{Error: msg, Details: details})
}
