package simulation

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jadonwu-dev/axwise/internal/history"
	"github.com/jadonwu-dev/axwise/internal/observability/metrics"
	"github.com/jadonwu-dev/axwise/internal/proxy"
	"github.com/jadonwu-dev/axwise/pkg/logging"
)

var pollerTracer = otel.Tracer("axwise/simulation-poller")

// Terminal poll outcomes.
const (
	outcomeCompleted = "completed"
	outcomeTimeout   = "timeout"
	outcomeCancelled = "cancelled"
)

// progressPayload is the backend's progress response; fields beyond these
// are ignored.
type progressPayload struct {
	Progress float64 `json:"progress"`
	Status   string  `json:"status,omitempty"`
}

// Poller drives a single simulation's progress loop: tick on a fixed
// interval until the backend reports completion, the simulation record is
// gone (404, meaning completed and collected server-side), the deadline
// passes, or the context is cancelled. Transient errors never stop the loop.
type Poller struct {
	client   *proxy.Client
	store    ResultStore
	history  *history.Store
	interval time.Duration
	timeout  time.Duration
	logger   *logging.Logger
	metrics  *metrics.GatewayMetrics
}

// PollerConfig wires a Poller.
type PollerConfig struct {
	Client   *proxy.Client
	Store    ResultStore
	History  *history.Store
	Interval time.Duration
	Timeout  time.Duration
	Logger   *logging.Logger
	Metrics  *metrics.GatewayMetrics
}

// NewPoller creates a progress poller.
func NewPoller(cfg PollerConfig) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Poller{
		client:   cfg.Client,
		store:    cfg.Store,
		history:  cfg.History,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// Run polls until a terminal state and returns the outcome. It blocks; the
// Manager runs it on its own goroutine.
func (p *Poller) Run(ctx context.Context, simulationID string) string {
	ctx, span := pollerTracer.Start(ctx, "simulation.poll")
	defer span.End()

	start := time.Now()
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	outcome := ""
	for outcome == "" {
		select {
		case <-ctx.Done():
			outcome = outcomeCancelled
		case <-deadline.C:
			outcome = outcomeTimeout
		case <-ticker.C:
			if done := p.tick(ctx, simulationID); done {
				outcome = outcomeCompleted
			}
		}
	}

	span.SetAttributes(
		attribute.String("simulation.id", simulationID),
		attribute.String("simulation.outcome", outcome),
	)
	p.metrics.ObservePollDuration(outcome, time.Since(start).Seconds())
	p.logger.Info("simulation poll finished",
		"simulation_id", simulationID,
		"outcome", outcome,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if outcome == outcomeCompleted {
		p.collectResults(simulationID)
	}
	p.recordRun(simulationID, outcome)
	return outcome
}

// tick performs one progress probe. It reports true on a terminal signal:
// progress at 100 or a 404 for an already-collected simulation.
func (p *Poller) tick(ctx context.Context, simulationID string) bool {
	resp, err := p.client.Get(ctx, "/api/research/simulation-bridge/progress/"+simulationID, nil)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// Transient; the next tick retries.
		p.metrics.ObservePollTick("error")
		p.logger.Warn("simulation progress poll failed", "simulation_id", simulationID, "error", err)
		return false
	}

	if resp.StatusCode == http.StatusNotFound {
		p.metrics.ObservePollTick("gone")
		return true
	}
	if !resp.OK() {
		p.metrics.ObservePollTick("error")
		p.logger.Warn("simulation progress poll returned error status",
			"simulation_id", simulationID,
			"status", resp.StatusCode,
		)
		return false
	}

	var progress progressPayload
	if err := json.Unmarshal(resp.Body, &progress); err != nil {
		p.metrics.ObservePollTick("error")
		p.logger.Warn("unparseable progress payload", "simulation_id", simulationID, "error", err)
		return false
	}

	p.metrics.ObservePollTick("progress")
	p.logger.Debug("simulation progress",
		"simulation_id", simulationID,
		"progress", progress.Progress,
		"status", progress.Status,
	)
	return progress.Progress >= 100
}

// collectResults fetches the completed interviews and appends them to the
// result store. Best-effort: the poll outcome stands even if this fails.
func (p *Poller) collectResults(simulationID string) {
	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := p.client.Get(ctx, "/api/research/simulation-bridge/completed/"+simulationID, nil)
	if err != nil {
		p.logger.Warn("failed to fetch completed simulation", "simulation_id", simulationID, "error", err)
		return
	}
	if !resp.OK() {
		p.logger.Warn("completed simulation fetch returned error status",
			"simulation_id", simulationID,
			"status", resp.StatusCode,
		)
		return
	}

	entry := Entry{
		SimulationID: simulationID,
		Timestamp:    time.Now().UTC(),
		Results:      json.RawMessage(resp.Body),
		Source:       "poller",
	}
	if err := p.store.Append(ctx, entry); err != nil {
		p.logger.Error("failed to store simulation results", "simulation_id", simulationID, "error", err)
		return
	}
	p.logger.Info("simulation results stored", "simulation_id", simulationID)
}

func (p *Poller) recordRun(simulationID, outcome string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.history.RecordRun(ctx, history.Record{
		SessionID: simulationID,
		Kind:      history.KindSimulation,
		Status:    outcome,
	})
	if err != nil {
		p.logger.Warn("failed to record simulation run", "simulation_id", simulationID, "error", err)
	}
}

// Manager tracks in-flight pollers so a simulation never has overlapping
// polls and user-initiated cancellation can stop one. Cancellation is local
// only; the backend job is not aborted.
type Manager struct {
	poller *Poller

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a poll manager around a poller.
func NewManager(poller *Poller) *Manager {
	return &Manager{
		poller: poller,
		active: make(map[string]context.CancelFunc),
	}
}

// Start launches a poll for the simulation unless one is already running.
// It reports whether a new poll was started.
func (m *Manager) Start(simulationID string) bool {
	m.mu.Lock()
	if _, running := m.active[simulationID]; running {
		m.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.active[simulationID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.remove(simulationID)
		m.poller.Run(ctx, simulationID)
	}()
	return true
}

// Cancel stops an in-flight poll. It reports whether one was running.
func (m *Manager) Cancel(simulationID string) bool {
	m.mu.Lock()
	cancel, running := m.active[simulationID]
	m.mu.Unlock()
	if running {
		cancel()
	}
	return running
}

// Shutdown cancels every in-flight poll and waits for them to finish.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, cancel := range m.active {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) remove(simulationID string) {
	m.mu.Lock()
	if cancel, ok := m.active[simulationID]; ok {
		cancel()
		delete(m.active, simulationID)
	}
	m.mu.Unlock()
}
