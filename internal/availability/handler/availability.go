package handler

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"simbook/internal/availability/service"
	apperrors "simbook/pkg/errors"
	httputil "simbook/pkg/http"
	"simbook/pkg/logger"
)

type AvailabilityHandler struct {
	engine service.AvailabilityEngine
	log    *logger.Logger
}

func NewAvailabilityHandler(engine service.AvailabilityEngine, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		engine: engine,
		log:    log,
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/regions/:region/availability/:date", h.GetAvailability)
	router.GET("/regions/:region/availability", h.NextAvailableDates)
	router.GET("/regions/:region/capacity", h.GetCapacityAnalysis)
}

func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	availability, err := h.engine.GetAvailability(r.Context(), ps.ByName("date"), ps.ByName("region"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAvailability", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAvailability", "error", err)
	}
}

func (h *AvailabilityHandler) NextAvailableDates(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	count := 0
	if s := r.URL.Query().Get("count"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid count parameter: "+s)); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "NextAvailableDates", "error", writeErr)
			}
			return
		}
		count = v
	}

	dates, err := h.engine.NextAvailableDates(r.Context(), ps.ByName("region"), count)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "NextAvailableDates", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{"dates": dates}); err != nil {
		h.log.Error("failed to write success response", "handler", "NextAvailableDates", "error", err)
	}
}

func (h *AvailabilityHandler) GetCapacityAnalysis(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()

	analysis, err := h.engine.GetCapacityAnalysis(r.Context(), ps.ByName("region"), query.Get("from"), query.Get("to"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetCapacityAnalysis", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, analysis); err != nil {
		h.log.Error("failed to write success response", "handler", "GetCapacityAnalysis", "error", err)
	}
}
