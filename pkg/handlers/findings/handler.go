package findings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vg-tools/ledger-audit/pkg/models/api"
	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/detect"
	"github.com/vg-tools/ledger-audit/pkg/services/lifecycle"
	findingsstore "github.com/vg-tools/ledger-audit/pkg/store/findings"
)

type Handler struct {
	store findingsstore.Store
}

func NewHandler(store findingsstore.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	filter := findingsstore.Filter{
		UnitID: r.URL.Query().Get("unit"),
		Status: domain.Status(r.URL.Query().Get("status")),
		RuleID: r.URL.Query().Get("rule"),
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		parsed := domain.ParseSeverity(sev)
		filter.Severity = &parsed
	}

	found, err := h.store.List(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list findings")
		writeError(w, http.StatusInternalServerError, "failed to list findings")
		return
	}

	response := make([]api.Finding, 0, len(found))
	for _, f := range found {
		response = append(response, toAPIFinding(f))
	}
	writeJSON(w, logger, http.StatusOK, response)
}

func (h *Handler) GetFinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	id := chi.URLParam(r, "finding")

	f, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, findingsstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "finding not found")
			return
		}
		logger.Error().Err(err).Str("finding", id).Msg("failed to load finding")
		writeError(w, http.StatusInternalServerError, "failed to load finding")
		return
	}
	writeJSON(w, logger, http.StatusOK, toAPIFinding(f))
}

// TransitionFinding applies one operator action to a finding. Invalid
// transitions map to 422, optimistic-concurrency conflicts to 409.
func (h *Handler) TransitionFinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	id := chi.URLParam(r, "finding")

	var req api.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ToStatus == "" || req.Actor == "" {
		writeError(w, http.StatusBadRequest, "to_status and actor are required")
		return
	}

	f, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, findingsstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "finding not found")
			return
		}
		logger.Error().Err(err).Str("finding", id).Msg("failed to load finding")
		writeError(w, http.StatusInternalServerError, "failed to load finding")
		return
	}

	expected := f.Status
	if req.ExpectedStatus != "" {
		expected = domain.Status(req.ExpectedStatus)
	}

	err = lifecycle.TransitionExpect(&f, expected, domain.Status(req.ToStatus), req.Actor, req.Notes)
	if err != nil {
		writeTransitionError(w, logger, err)
		return
	}

	// Persist with the same optimistic guard against the stored row.
	if err := h.store.UpdateStatus(ctx, f.ID, expected, f.Status, f.Notes); err != nil {
		writeTransitionError(w, logger, err)
		return
	}
	if err := h.store.AppendOverride(ctx, f.History[len(f.History)-1]); err != nil {
		logger.Error().Err(err).Str("finding", id).Msg("failed to append override record")
		writeError(w, http.StatusInternalServerError, "failed to record transition")
		return
	}

	logger.Info().
		Str("finding", f.ID).
		Str("from", string(expected)).
		Str("to", string(f.Status)).
		Str("actor", req.Actor).
		Msg("finding transitioned")

	writeJSON(w, logger, http.StatusOK, toAPIFinding(f))
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	found, err := h.store.List(ctx, findingsstore.Filter{})
	if err != nil {
		logger.Error().Err(err).Msg("failed to list findings")
		writeError(w, http.StatusInternalServerError, "failed to list findings")
		return
	}

	stats := detect.Summarize(found)
	writeJSON(w, logger, http.StatusOK, api.Summary{
		TotalFindings: stats.TotalFindings,
		BySeverity:    stats.BySeverity,
		ByRule:        stats.ByRule,
		AffectedUnits: stats.AffectedUnits,
	})
}

func writeTransitionError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	var invalid *lifecycle.InvalidTransitionError
	var conflict *lifecycle.ConcurrentModificationError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusUnprocessableEntity, invalid.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Error())
	default:
		logger.Error().Err(err).Msg("transition failed")
		writeError(w, http.StatusInternalServerError, "transition failed")
	}
}

func toAPIFinding(f domain.Finding) api.Finding {
	out := api.Finding{
		ID:                 f.ID,
		UnitID:             f.UnitID,
		RuleID:             f.RuleID,
		Severity:           f.Severity.String(),
		Month:              f.Month.String(),
		Delta:              f.Delta.String(),
		Evidence:           f.Evidence,
		Narrative:          f.Narrative,
		EvidenceIncomplete: f.EvidenceIncomplete,
		Status:             string(f.Status),
		Notes:              f.Notes,
		CreatedAt:          f.CreatedAt,
	}
	for _, rec := range f.History {
		out.History = append(out.History, api.OverrideRecord{
			FindingID:  rec.FindingID,
			FromStatus: string(rec.FromStatus),
			ToStatus:   string(rec.ToStatus),
			Actor:      rec.Actor,
			Timestamp:  rec.Timestamp,
			Notes:      rec.Notes,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, logger *zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.Error{Error: msg})
}
