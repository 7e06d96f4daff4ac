package onion

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
	Oo "github.com/GMPavanLab/timeseries-analysis/obvy"
	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

var Version = "dev"

// View is the read-only serving surface over a running (or finished)
// clustering session. The sweep feeds it run summaries, the final
// analysis feeds it the state list; HTTP clients only ever read.
type View struct {
	MU      sync.RWMutex
	Cfg     *Oc.Config
	Stats   *Oo.StatsInternal
	States  []Ot.State
	Summary Ot.RunSummary
	Sweep   []Ot.RunSummary
	Total   int

	server *http.Server
}

func NewView(cfg *Oc.Config, stats *Oo.StatsInternal) *View {
	return &View{
		Cfg:   cfg,
		Stats: stats,
	}
}

// RecordRun satisfies the sweep's RunRecorder: every finished grid cell
// shows up in the progress snapshots.
func (v *View) RecordRun(rs Ot.RunSummary) {
	v.MU.Lock()
	defer v.MU.Unlock()
	v.Sweep = append(v.Sweep, rs)
}

// SetTotal announces how many grid cells the sweep will run,
// so progress snapshots can report completion.
func (v *View) SetTotal(total int) {
	v.MU.Lock()
	defer v.MU.Unlock()
	v.Total = total
}

// SetFinal publishes the outcome of the full analysis.
func (v *View) SetFinal(states []Ot.State, summary Ot.RunSummary) {
	v.MU.Lock()
	defer v.MU.Unlock()
	v.States = states
	v.Summary = summary
}

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket pushing sweep progress
// - Version for programmatic use
// - Final states and run summary for UI feedback
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)
	r.HandleFunc("/api/version", v.VersionHandler)
	r.HandleFunc("/api/states", v.StatesHandler)
	r.HandleFunc("/api/summary", v.SummaryHandler)
	r.HandleFunc("/api/sweep", v.SweepHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)

	return r
}

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// StatesHandler serves the final state list with boundaries.
func (v *View) StatesHandler(w http.ResponseWriter, r *http.Request) {
	v.MU.RLock()
	defer v.MU.RUnlock()

	type StateData struct {
		Mean      float64 `json:"mean"`
		Sigma     float64 `json:"sigma"`
		Area      float64 `json:"area"`
		Relevance float64 `json:"relevance"`
		ThInf     float64 `json:"thInf"`
		ThInfType int     `json:"thInfType"`
		ThSup     float64 `json:"thSup"`
		ThSupType int     `json:"thSupType"`
	}

	allStates := make([]StateData, 0, len(v.States))
	for _, st := range v.States {
		allStates = append(allStates, StateData{
			Mean:      st.Mean,
			Sigma:     st.Sigma,
			Area:      st.Area,
			Relevance: st.Perc,
			ThInf:     st.ThInf.Value,
			ThInfType: st.ThInf.Type,
			ThSup:     st.ThSup.Value,
			ThSupType: st.ThSup.Type,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(allStates)
}

func (v *View) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	v.MU.RLock()
	defer v.MU.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"runID":        v.Summary.RunID,
		"tauWindow":    v.Summary.TauWindow,
		"tSmooth":      v.Summary.TSmooth,
		"numStates":    v.Summary.NumStates,
		"unclassified": v.Summary.Unclassified,
	})
}

func (v *View) SweepHandler(w http.ResponseWriter, r *http.Request) {
	v.MU.RLock()
	defer v.MU.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v.Sweep)
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)
		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// Serve runs the data endpoint until the server is shut down.
// The router is wrapped for OTel HTTP tracing.
func (v *View) Serve(addr string) error {
	v.server = &http.Server{
		Addr:    addr,
		Handler: otelhttp.NewHandler(v.SetupMux(), "onion-api"),
	}
	slog.Info("Starting data endpoint", slog.String("Addr", addr))
	if err := v.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not start data endpoint", slog.Any("Error", err))
		return err
	}
	return nil
}
