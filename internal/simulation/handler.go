package simulation

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jadonwu-dev/axwise/internal/proxy"
	"github.com/jadonwu-dev/axwise/pkg/logging"
)

// Handler exposes the simulation bridge: launching a simulation starts a
// local progress poll, progress and completed lookups are relayed to the
// backend, and stored results are served from the result store.
type Handler struct {
	client  *proxy.Client
	manager *Manager
	store   ResultStore
	logger  *logging.Logger
}

// NewHandler creates the simulation handler.
func NewHandler(client *proxy.Client, manager *Manager, store ResultStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		client:  client,
		manager: manager,
		store:   store,
		logger:  logger.Component("simulation"),
	}
}

// Routes mounts the simulation bridge endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/simulate", h.StartSimulation)
	r.Get("/progress/{simulationID}", h.GetProgress)
	r.Get("/completed", h.ListCompleted)
	r.Get("/completed/{simulationID}", h.GetCompleted)
	r.Get("/results", h.ListResults)
	r.Delete("/simulations/{simulationID}", h.CancelSimulation)
	return r
}

// startResponse wraps the backend's launch response so the caller also
// learns whether a poll was started.
type startResponse struct {
	Simulation   json.RawMessage `json:"simulation"`
	SimulationID string          `json:"simulation_id"`
	Polling      bool            `json:"polling"`
}

// StartSimulation relays the launch request to the backend and, on success,
// starts a progress poll for the returned simulation ID.
func (h *Handler) StartSimulation(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	resp, err := h.client.Do(r.Context(), http.MethodPost, "/api/research/simulation-bridge/simulate", nil, body, contentTypeOr(r, "application/json"))
	if err != nil {
		h.logger.Error("simulation launch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start simulation", "Internal Server Error")
		return
	}
	if !resp.OK() {
		writeError(w, resp.StatusCode, "Failed to start simulation", string(resp.Body))
		return
	}

	simulationID := extractSimulationID(resp.Body)
	if simulationID == "" {
		h.logger.Warn("simulation launched without an id; no poll started")
		relay(w, resp)
		return
	}

	started := h.manager.Start(simulationID)
	if !started {
		h.logger.Info("poll already running for simulation", "simulation_id", simulationID)
	} else {
		h.logger.Info("simulation poll started", "simulation_id", simulationID)
	}

	writeJSON(w, http.StatusOK, startResponse{
		Simulation:   json.RawMessage(resp.Body),
		SimulationID: simulationID,
		Polling:      started,
	})
}

// GetProgress relays a single progress probe.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "simulationID")
	resp, err := h.client.Get(r.Context(), "/api/research/simulation-bridge/progress/"+id, nil)
	if err != nil {
		h.logger.Error("progress fetch failed", "simulation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch simulation progress", "Internal Server Error")
		return
	}
	if !resp.OK() {
		writeError(w, resp.StatusCode, "Failed to fetch simulation progress", string(resp.Body))
		return
	}
	relay(w, resp)
}

// ListCompleted relays the backend's completed-simulations listing.
func (h *Handler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	h.relayGet(w, r, "/api/research/simulation-bridge/completed", "Failed to fetch completed simulations")
}

// GetCompleted relays one completed simulation's interviews.
func (h *Handler) GetCompleted(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "simulationID")
	h.relayGet(w, r, "/api/research/simulation-bridge/completed/"+id, "Failed to fetch completed simulation")
}

// ListResults serves the locally stored simulation results, newest last.
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("result store read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch simulation results", "Internal Server Error")
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": entries,
		"count":   len(entries),
	})
}

// CancelSimulation stops the local poll for a simulation. The backend job
// keeps running; only the gateway stops watching it.
func (h *Handler) CancelSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "simulationID")
	cancelled := h.manager.Cancel(id)
	if !cancelled {
		writeError(w, http.StatusNotFound, "No active poll for simulation", id)
		return
	}
	h.logger.Info("simulation poll cancelled", "simulation_id", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"simulation_id": id,
		"cancelled":     true,
	})
}

func (h *Handler) relayGet(w http.ResponseWriter, r *http.Request, path, errMsg string) {
	resp, err := h.client.Get(r.Context(), path, r.URL.Query())
	if err != nil {
		h.logger.Error("backend fetch failed", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, errMsg, "Internal Server Error")
		return
	}
	if !resp.OK() {
		writeError(w, resp.StatusCode, errMsg, string(resp.Body))
		return
	}
	relay(w, resp)
}

// extractSimulationID digs the simulation ID out of a launch response. The
// backend has used both top-level and nested shapes.
func extractSimulationID(body []byte) string {
	var payload struct {
		SimulationID string `json:"simulation_id"`
		ID           string `json:"id"`
		Simulation   struct {
			SimulationID string `json:"simulation_id"`
			ID           string `json:"id"`
		} `json:"simulation"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.SimulationID != "":
		return payload.SimulationID
	case payload.ID != "":
		return payload.ID
	case payload.Simulation.SimulationID != "":
		return payload.Simulation.SimulationID
	default:
		return payload.Simulation.ID
	}
}

func contentTypeOr(r *http.Request, fallback string) string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return fallback
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func relay(w http.ResponseWriter, resp *proxy.Response) {
	ct := resp.ContentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, proxy.ErrorEnvelope{Error: msg, Details: details})
}
