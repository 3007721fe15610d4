package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"lanscope/internal/domain"
	"lanscope/internal/service"
)

// TopologyHandler handles topology API requests
type TopologyHandler struct {
	svc *service.TopologyService
	log *logrus.Entry
}

// NewTopologyHandler creates a new topology handler
func NewTopologyHandler(svc *service.TopologyService) *TopologyHandler {
	return &TopologyHandler{
		svc: svc,
		log: logrus.WithField("component", "handler"),
	}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DiscoverRequest starts a discovery run
type DiscoverRequest struct {
	Subnet string `json:"subnet"`
}

// LayoutRequest resets the layout
type LayoutRequest struct {
	Strategy string `json:"strategy"`
}

// PositionRequest moves a node
type PositionRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned *bool   `json:"pinned,omitempty"`
}

// NewRouter wires the API, the SSE stream and the metrics endpoint into one
// handler with the standard middleware applied. events and metrics may be nil.
func NewRouter(h *TopologyHandler, events, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	if events != nil {
		mux.Handle("GET /events", events)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return Chain(mux, Recover, CORS, Logger)
}

// Register adds the API routes to mux
func (h *TopologyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("GET /api/stats", h.GetStats)
	mux.HandleFunc("GET /api/result", h.GetResult)
	mux.HandleFunc("GET /api/discover", h.GetDiscovery)
	mux.HandleFunc("POST /api/discover", h.StartDiscovery)
	mux.HandleFunc("POST /api/discover/cancel", h.CancelDiscovery)
	mux.HandleFunc("POST /api/layout", h.ResetLayout)
	mux.HandleFunc("POST /api/layout/step", h.StepLayout)
	mux.HandleFunc("PUT /api/positions/{ip}", h.UpdatePosition)
}

// GetGraph returns the complete graph with positions
func (h *TopologyHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Graph(), http.StatusOK)
}

// GetStats returns category counts for the current graph
func (h *TopologyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Stats(), http.StatusOK)
}

// GetResult returns the last applied discovery result
func (h *TopologyHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	result, ok := h.svc.Result()
	if !ok {
		h.writeError(w, "Not found", "no discovery result yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

// GetDiscovery returns the running or most recent run
func (h *TopologyHandler) GetDiscovery(w http.ResponseWriter, r *http.Request) {
	status, ok := h.svc.Status()
	if !ok {
		h.writeError(w, "Not found", "no discovery has run", http.StatusNotFound)
		return
	}
	h.writeJSON(w, status, http.StatusOK)
}

// StartDiscovery launches a discovery run
func (h *TopologyHandler) StartDiscovery(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	status, err := h.svc.StartDiscovery(req.Subnet)
	switch {
	case errors.Is(err, service.ErrDiscoveryRunning):
		h.writeError(w, "Discovery already running", err.Error(), http.StatusConflict)
		return
	case errors.Is(err, service.ErrDiscoveryDisabled):
		h.writeError(w, "Discovery disabled", err.Error(), http.StatusForbidden)
		return
	case errors.Is(err, service.ErrInvalidSubnet):
		h.writeError(w, "Invalid subnet", err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.log.WithError(err).Error("Failed to start discovery")
		h.writeError(w, "Failed to start discovery", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, status, http.StatusAccepted)
}

// CancelDiscovery requests cancellation of the running discovery
func (h *TopologyHandler) CancelDiscovery(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.CancelDiscovery()
	if errors.Is(err, service.ErrNoDiscovery) {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	}
	h.writeJSON(w, status, http.StatusAccepted)
}

// ResetLayout recomputes the layout from a fresh initial placement
func (h *TopologyHandler) ResetLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	strategy, err := h.svc.ResetLayout(req.Strategy)
	if err != nil {
		h.writeError(w, "Invalid strategy", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, map[string]string{"strategy": string(strategy)}, http.StatusAccepted)
}

// StepLayout advances the layout by one iteration
func (h *TopologyHandler) StepLayout(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Step(), http.StatusOK)
}

// UpdatePosition moves a single node
func (h *TopologyHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	if ip == "" {
		h.writeError(w, "Invalid node", "node IP is required", http.StatusBadRequest)
		return
	}

	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	err := h.svc.SetPosition(ip, domain.Position{X: req.X, Y: req.Y}, req.Pinned)
	switch {
	case errors.Is(err, service.ErrUnknownNode):
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	case err != nil:
		h.writeError(w, "Invalid position", err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Warn("Failed to encode JSON")
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}

// decodeOptional decodes a JSON body, treating an empty body as zero values
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
