package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dwaltig/agentdeck/internal/metrics"
	"github.com/dwaltig/agentdeck/internal/probe"
	"github.com/dwaltig/agentdeck/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// API exposes the console's local control surface over HTTP: health,
// runtime status, test runs, and view activation.
type API struct {
	logger         zerolog.Logger
	allowedOrigins []string

	statusFunc   func() map[string]interface{}
	runFunc      func(ctx context.Context) (*probe.Report, error)
	lastFunc     func() *probe.Report
	activateFunc func(ctx context.Context, view string) error
}

// NewAPI creates a control API.
func NewAPI(allowedOrigins []string, logger zerolog.Logger) *API {
	return &API{
		logger:         logger.With().Str("component", "control").Logger(),
		allowedOrigins: allowedOrigins,
	}
}

// SetHandlers sets the control callbacks.
func (api *API) SetHandlers(
	status func() map[string]interface{},
	run func(ctx context.Context) (*probe.Report, error),
	last func() *probe.Report,
	activate func(ctx context.Context, view string) error,
) {
	api.statusFunc = status
	api.runFunc = run
	api.lastFunc = last
	api.activateFunc = activate
}

// Router builds the HTTP routes with the standard middleware stack.
func (api *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(api.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(api.allowedOrigins))

	r.Get("/health", api.healthHandler)
	r.Get("/status", api.statusHandler)
	r.Post("/tests/run", api.runTestsHandler)
	r.Get("/tests/last", api.lastTestsHandler)
	r.Post("/views/activate", api.activateViewHandler)
	r.Get("/metrics", metrics.Get().Handler())

	return r
}

// healthHandler handles health check requests.
func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"agentdeck-console"}`)
}

// statusHandler returns the console's runtime status.
func (api *API) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{}
	if api.statusFunc != nil {
		status = api.statusFunc()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// runTestsHandler starts a synchronous test run. A run already in
// progress yields 409 rather than queueing a second run.
func (api *API) runTestsHandler(w http.ResponseWriter, r *http.Request) {
	if api.runFunc == nil {
		http.Error(w, "test runner not configured", http.StatusServiceUnavailable)
		return
	}

	report, err := api.runFunc(r.Context())
	if err != nil {
		if errors.Is(err, probe.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		api.logger.Error().Err(err).Msg("test run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report.Snapshot())
}

// lastTestsHandler returns the most recent completed test run.
func (api *API) lastTestsHandler(w http.ResponseWriter, r *http.Request) {
	var report *probe.Report
	if api.lastFunc != nil {
		report = api.lastFunc()
	}
	if report == nil {
		http.Error(w, "no test run completed yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report.Snapshot())
}

// activateViewHandler switches the console's active view.
func (api *API) activateViewHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View string `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if api.activateFunc == nil {
		http.Error(w, "view controller not configured", http.StatusServiceUnavailable)
		return
	}
	if err := api.activateFunc(r.Context(), req.View); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"active": req.View})
}
