package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"simbook/internal/match"
	"simbook/internal/projection"
	"simbook/internal/risk"
	apperrors "simbook/pkg/errors"
	httputil "simbook/pkg/http"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

// PlanningHandler serves the read side: daily planning, operator load,
// staffing suggestions and risk reports. Everything here answers from
// the projection; nothing writes.
type PlanningHandler struct {
	state   *projection.Projection
	matcher *match.Engine
	risks   *risk.Engine
	log     *logger.Logger
}

func NewPlanningHandler(state *projection.Projection, matcher *match.Engine, risks *risk.Engine, log *logger.Logger) *PlanningHandler {
	return &PlanningHandler{
		state:   state,
		matcher: matcher,
		risks:   risks,
		log:     log,
	}
}

func (h *PlanningHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/planning/:date", h.GetDailyPlanning)
	router.GET("/operators/:id/load", h.GetOperatorLoad)
	router.GET("/setups/:id/availability/:date", h.GetSetupAvailability)
	router.GET("/sessions/:id/suggestions", h.GetSuggestions)
	router.GET("/risks", h.GetSessionRisks)
	router.GET("/risks/overload", h.GetOperatorOverload)
}

func (h *PlanningHandler) GetDailyPlanning(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date := ps.ByName("date")
	if !model.ValidDate(date) {
		h.writeError(w, "GetDailyPlanning", apperrors.InvalidInput("invalid date: "+date))
		return
	}
	if !h.state.Ready() {
		h.writeError(w, "GetDailyPlanning", projectionNotReady())
		return
	}

	h.writeSuccess(w, "GetDailyPlanning", map[string]any{
		"date":     date,
		"sessions": h.state.DailyPlanning(date),
	})
}

func (h *PlanningHandler) GetOperatorLoad(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.state.Ready() {
		h.writeError(w, "GetOperatorLoad", projectionNotReady())
		return
	}

	operatorID := ps.ByName("id")
	operator := h.state.Operator(operatorID)
	if operator == nil {
		h.writeError(w, "GetOperatorLoad", apperrors.NotFoundWithID("Operator", operatorID))
		return
	}

	dates := h.state.OperatorLoad(operatorID)
	h.writeSuccess(w, "GetOperatorLoad", map[string]any{
		"operator":     operator,
		"dates":        dates,
		"session_days": len(dates),
	})
}

func (h *PlanningHandler) GetSetupAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date := ps.ByName("date")
	if !model.ValidDate(date) {
		h.writeError(w, "GetSetupAvailability", apperrors.InvalidInput("invalid date: "+date))
		return
	}
	if !h.state.Ready() {
		h.writeError(w, "GetSetupAvailability", projectionNotReady())
		return
	}

	setupID := ps.ByName("id")
	h.writeSuccess(w, "GetSetupAvailability", map[string]any{
		"setup_id":  setupID,
		"date":      date,
		"available": h.state.IsSetupAvailable(setupID, date),
	})
}

func (h *PlanningHandler) GetSuggestions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.state.Ready() {
		h.writeError(w, "GetSuggestions", projectionNotReady())
		return
	}

	suggestion, err := h.matcher.SuggestOperators(ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSuggestions", err)
		return
	}

	h.writeSuccess(w, "GetSuggestions", suggestion)
}

func (h *PlanningHandler) GetSessionRisks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	risks, err := h.risks.SessionRisks(r.Context())
	if err != nil {
		h.writeError(w, "GetSessionRisks", err)
		return
	}

	h.writeSuccess(w, "GetSessionRisks", map[string]any{"risks": risks})
}

func (h *PlanningHandler) GetOperatorOverload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	overloads, err := h.risks.GetOperatorOverload(r.Context())
	if err != nil {
		h.writeError(w, "GetOperatorOverload", err)
		return
	}

	h.writeSuccess(w, "GetOperatorOverload", map[string]any{"overloads": overloads})
}

func projectionNotReady() *apperrors.AppError {
	return apperrors.New("PROJECTION_NOT_READY", "Planning state is still loading", http.StatusServiceUnavailable)
}

func (h *PlanningHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *PlanningHandler) writeSuccess(w http.ResponseWriter, handlerName string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handlerName, "error", err)
	}
}
