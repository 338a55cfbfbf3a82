package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vg-tools/ledger-audit/pkg/models/api"
	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/aggregate"
	"github.com/vg-tools/ledger-audit/pkg/services/audit"
)

// Handler serves the read-only aggregate tables and triggers audit runs
// over the analysis session's loaded dataset.
type Handler struct {
	svc    *audit.Service
	units  []domain.Unit
	txns   []domain.Transaction
	leases []domain.LeaseTerm
}

func NewHandler(
	svc *audit.Service,
	units []domain.Unit,
	txns []domain.Transaction,
	leases []domain.LeaseTerm,
) *Handler {
	return &Handler{svc: svc, units: units, txns: txns, leases: leases}
}

func (h *Handler) GetAggregates(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	window, err := h.parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cells := aggregate.Aggregate(h.txns, h.leases, window)
	response := make([]api.MonthlyAggregate, 0, len(cells))
	for _, cell := range cells {
		response = append(response, api.MonthlyAggregate{
			UnitID:          cell.UnitID,
			Month:           cell.Month.String(),
			GrossRent:       cell.GrossRent.String(),
			Fees:            cell.Fees.String(),
			Credits:         cell.Credits.String(),
			NetRent:         cell.NetRent.String(),
			ConcessionRatio: cell.ConcessionRatio.String(),
		})
	}
	writeJSON(w, logger, http.StatusOK, response)
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	window, err := h.parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cells := aggregate.Aggregate(h.txns, h.leases, window)
	trend := aggregate.RevenueTrend(cells, window)

	response := make([]api.TrendPoint, 0, len(trend))
	for _, p := range trend {
		point := api.TrendPoint{
			Month:  p.Month.String(),
			Net:    p.Net.String(),
			Change: p.Change.String(),
		}
		if p.ChangePct != nil {
			pct := p.ChangePct.String()
			point.ChangePct = &pct
		}
		response = append(response, point)
	}
	writeJSON(w, logger, http.StatusOK, response)
}

// RunAudit executes a detection run over the session dataset and merges
// new findings into the store.
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	window, err := h.parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Run(ctx, h.units, h.txns, h.leases, window)
	if err != nil {
		logger.Error().Err(err).Msg("audit run failed")
		writeError(w, http.StatusInternalServerError, "audit run failed")
		return
	}

	writeJSON(w, logger, http.StatusOK, api.Summary{
		TotalFindings: result.Stats.TotalFindings,
		BySeverity:    result.Stats.BySeverity,
		ByRule:        result.Stats.ByRule,
		AffectedUnits: result.Stats.AffectedUnits,
	})
}

// parseWindow reads from/to query params, defaulting to the dataset's
// month span.
func (h *Handler) parseWindow(r *http.Request) (aggregate.Window, error) {
	window := DatasetWindow(h.txns)

	if from := r.URL.Query().Get("from"); from != "" {
		m, err := domain.ParseYearMonth(from)
		if err != nil {
			return aggregate.Window{}, err
		}
		window.Start = m
	}
	if to := r.URL.Query().Get("to"); to != "" {
		m, err := domain.ParseYearMonth(to)
		if err != nil {
			return aggregate.Window{}, err
		}
		window.End = m
	}
	return window, nil
}

// DatasetWindow spans the earliest to latest transaction month.
func DatasetWindow(txns []domain.Transaction) aggregate.Window {
	var window aggregate.Window
	for i, t := range txns {
		if i == 0 {
			window = aggregate.Window{Start: t.Month, End: t.Month}
			continue
		}
		if t.Month.Before(window.Start) {
			window.Start = t.Month
		}
		if t.Month.After(window.End) {
			window.End = t.Month
		}
	}
	return window
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
