// Package httpserver wires the fit-check pipeline to its HTTP surface: a
// health probe, the SSE streaming endpoint, and a diagnostic circuit-breaker
// snapshot — plus graceful shutdown matching the teacher's webhook server.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fitcheck/engine/internal/pipeline"
	"github.com/fitcheck/engine/internal/profile"
	"github.com/fitcheck/engine/internal/resilience"
	"github.com/fitcheck/engine/internal/sse"
)

// Env bundles everything a request handler needs to run the pipeline.
type Env struct {
	Deps     *pipeline.Deps
	Profile  *profile.Profile
	Breakers *resilience.ServiceBreakers
	EngineCfg pipeline.EngineConfig
}

// fitCheckRequest is the POST /api/fit-check/stream body.
type fitCheckRequest struct {
	Query           string  `json:"query"`
	IncludeThoughts bool    `json:"include_thoughts"`
	ModelID         string  `json:"model_id,omitempty"`
	ConfigType      string  `json:"config_type,omitempty"`
}

// BuildMux constructs the HTTP handler for the fit-check server.
func BuildMux(env *Env, rateLimitPerMin, rateLimitBurst int) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("GET /debug/breakers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		states := env.Breakers.States()
		out := make(map[string]string, len(states))
		for service, state := range states {
			out[service] = state.String()
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("POST /api/fit-check/stream", func(w http.ResponseWriter, r *http.Request) {
		handleFitCheckStream(env, w, r)
	})

	return RateLimit(rateLimitPerMin, rateLimitBurst, mux)
}

func handleFitCheckStream(env *Env, w http.ResponseWriter, r *http.Request) {
	var req fitCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_QUERY", "malformed request body")
		return
	}

	if len(req.Query) < 3 || len(req.Query) > 2000 {
		writeJSONError(w, http.StatusBadRequest, "INVALID_QUERY", "query must be between 3 and 2000 characters")
		return
	}

	modelClass := pipeline.ModelClassStandard
	if req.ConfigType == "reasoning" {
		modelClass = pipeline.ModelClassReasoning
	}

	state := &pipeline.State{
		Query:           req.Query,
		ModelClass:      modelClass,
		IncludeThoughts: req.IncludeThoughts,
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "AGENT_ERROR", "streaming unsupported")
		return
	}

	ctx := r.Context()
	if err := pipeline.Run(ctx, env.Deps, state, env.EngineCfg, writer); err != nil {
		zap.L().Error("fit-check run failed", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully within 15s.
func Serve(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}
