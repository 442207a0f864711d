package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"netcost/internal/core"
)

// circuitRequest is the JSON write shape for POST /api/circuits. The monthly
// cost arrives as a decimal string so clients never deal in cents.
type circuitRequest struct {
	ID            string `json:"id"`
	LocationID    string `json:"location_id"`
	ProposalID    string `json:"proposal_id,omitempty"`
	Set           string `json:"set"`
	Type          string `json:"type"`
	MonthlyCost   string `json:"monthly_cost"`
	ContractStart string `json:"contract_start,omitempty"`
	ContractEnd   string `json:"contract_end,omitempty"`
}

type circuitResponse struct {
	Ref              string `json:"ref"`
	ID               string `json:"id"`
	LocationID       string `json:"location_id"`
	ProposalID       string `json:"proposal_id,omitempty"`
	Set              string `json:"set"`
	Type             string `json:"type"`
	MonthlyCostCents int64  `json:"monthly_cost_cents"`
	ContractStart    string `json:"contract_start,omitempty"`
	ContractEnd      string `json:"contract_end,omitempty"`
}

// handleProjection serves the aggregated monthly cost series.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	locationID := strings.TrimSpace(r.URL.Query().Get("location_id"))
	proposalID := strings.TrimSpace(r.URL.Query().Get("proposal_id"))
	if locationID == "" {
		writeError(w, http.StatusBadRequest, "location_id is required")
		return
	}

	key := s.cacheKey(locationID, proposalID)
	if points, found := s.projCache.Get(key); found {
		slog.DebugContext(r.Context(), "Projection cache hit",
			"location_id", locationID, "proposal_id", proposalID)
		writeJSON(w, http.StatusOK, points)
		return
	}

	// Small timeout so a stuck inventory fetch cannot hang the chart
	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	points, err := s.projector.ProjectLocation(ctx, locationID, proposalID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Projection error", "error", err,
			"location_id", locationID, "proposal_id", proposalID)
		writeError(w, http.StatusBadGateway, "could not compute projection")
		return
	}

	s.projCache.Set(key, points)
	writeJSON(w, http.StatusOK, points)
}

// handleCircuits routes the collection endpoints: create and list.
func (s *Server) handleCircuits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateCircuit(w, r)
	case http.MethodGet:
		s.handleListCircuits(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateCircuit(w http.ResponseWriter, r *http.Request) {
	var req circuitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.MonthlyCost)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid monthly cost")
		return
	}

	start, err := core.ParseDate(req.ContractStart)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid contract start date, want YYYY-MM-DD")
		return
	}
	end, err := core.ParseDate(req.ContractEnd)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid contract end date, want YYYY-MM-DD")
		return
	}

	c := core.Circuit{
		ID:            strings.TrimSpace(req.ID),
		LocationID:    strings.TrimSpace(req.LocationID),
		ProposalID:    strings.TrimSpace(req.ProposalID),
		Set:           core.CircuitSet(req.Set),
		Type:          strings.TrimSpace(req.Type),
		MonthlyCost:   core.Money{Cents: cents},
		ContractStart: start,
		ContractEnd:   end,
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid circuit: "+err.Error())
		return
	}

	// Unrecognized types are stored but never contribute to totals; surface
	// that at ingestion so the caller notices.
	if _, err := core.ParseCircuitType(c.Type); errors.Is(err, core.ErrUnknownCircuitType) {
		slog.WarnContext(r.Context(), "Circuit type not recognized, it will not contribute to projections",
			"circuit_id", c.ID, "type", c.Type)
	}

	ref, err := s.writer.UpsertCircuit(r.Context(), c)
	if err != nil {
		slog.ErrorContext(r.Context(), "Circuit upsert error", "error", err, "circuit_id", c.ID)
		writeError(w, http.StatusInternalServerError, "could not save circuit")
		return
	}

	s.invalidateProjection(c.LocationID, c.ProposalID)

	writeJSON(w, http.StatusCreated, circuitResponse{
		Ref:              ref,
		ID:               c.ID,
		LocationID:       c.LocationID,
		ProposalID:       c.ProposalID,
		Set:              c.Set.String(),
		Type:             c.Type,
		MonthlyCostCents: c.MonthlyCost.Cents,
		ContractStart:    c.ContractStart.String(),
		ContractEnd:      c.ContractEnd.String(),
	})
}

func (s *Server) handleListCircuits(w http.ResponseWriter, r *http.Request) {
	locationID := strings.TrimSpace(r.URL.Query().Get("location_id"))
	proposalID := strings.TrimSpace(r.URL.Query().Get("proposal_id"))
	if locationID == "" {
		writeError(w, http.StatusBadRequest, "location_id is required")
		return
	}

	var (
		circuits []core.Circuit
		err      error
	)
	if proposalID != "" {
		circuits, err = s.proposed.ListProposedCircuits(r.Context(), proposalID, locationID)
	} else {
		circuits, err = s.active.ListActiveCircuits(r.Context(), locationID)
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Circuit list error", "error", err,
			"location_id", locationID, "proposal_id", proposalID)
		writeError(w, http.StatusInternalServerError, "could not list circuits")
		return
	}

	out := make([]circuitResponse, 0, len(circuits))
	for _, c := range circuits {
		out = append(out, circuitResponse{
			ID:               c.ID,
			LocationID:       c.LocationID,
			ProposalID:       c.ProposalID,
			Set:              c.Set.String(),
			Type:             c.Type,
			MonthlyCostCents: c.MonthlyCost.Cents,
			ContractStart:    c.ContractStart.String(),
			ContractEnd:      c.ContractEnd.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCircuitByID serves DELETE /api/circuits/{id}.
func (s *Server) handleCircuitByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	circuitID := strings.TrimPrefix(r.URL.Path, "/api/circuits/")
	if circuitID == "" || strings.Contains(circuitID, "/") {
		writeError(w, http.StatusBadRequest, "invalid circuit id")
		return
	}

	if err := s.deleter.DeleteCircuit(r.Context(), circuitID); err != nil {
		slog.WarnContext(r.Context(), "Circuit delete error", "error", err, "circuit_id", circuitID)
		writeError(w, http.StatusNotFound, "circuit not found")
		return
	}

	// The delete event does not say which location changed, so stale cached
	// projections age out via TTL instead of precise invalidation.
	writeJSON(w, http.StatusOK, map[string]string{"deleted": circuitID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
