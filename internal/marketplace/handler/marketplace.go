package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"simbook/internal/marketplace/service"
	"simbook/internal/marketplace/validator"
	httputil "simbook/pkg/http"
	"simbook/pkg/logger"
)

type MarketplaceHandler struct {
	service   service.MarketplaceService
	validator *validator.ApplicationValidator
	log       *logger.Logger
}

func NewMarketplaceHandler(service service.MarketplaceService, appValidator *validator.ApplicationValidator, log *logger.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		service:   service,
		validator: appValidator,
		log:       log,
	}
}

func (h *MarketplaceHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/regions/:region/marketplace", h.ListOpenSessions)
	router.GET("/sessions/:id/applications", h.SessionApplications)
	router.POST("/sessions/:id/applications", h.Apply)
	router.POST("/sessions/:id/applications/accept", h.Accept)
	router.POST("/sessions/:id/applications/reject", h.Reject)
}

func (h *MarketplaceHandler) ListOpenSessions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListOpenSessions", err)
		return
	}

	listings, err := h.service.ListOpenSessions(r.Context(), ps.ByName("region"))
	if err != nil {
		h.writeError(w, "ListOpenSessions", err)
		return
	}

	total := int64(len(listings))
	if err := httputil.WritePaginated(w, paginate(listings, limit, offset), total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListOpenSessions", "error", err)
	}
}

// paginate windows the listing after the visibility filtering; open
// marketplace pages are small enough that repository-side pagination
// would not pay for itself.
func paginate[T any](items []T, limit int, offset int64) []T {
	if offset >= int64(len(items)) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (h *MarketplaceHandler) SessionApplications(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	applications, err := h.service.SessionApplications(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "SessionApplications", err)
		return
	}
	h.writeSuccess(w, "SessionApplications", applications)
}

func (h *MarketplaceHandler) Apply(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, ok := h.decode(w, r, "Apply")
	if !ok {
		return
	}

	application, err := h.service.Apply(r.Context(), ps.ByName("id"), req.OperatorID)
	if err != nil {
		h.writeError(w, "Apply", err)
		return
	}

	if err := httputil.WriteCreated(w, application); err != nil {
		h.log.Error("failed to write created response", "handler", "Apply", "error", err)
	}
}

func (h *MarketplaceHandler) Accept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, ok := h.decode(w, r, "Accept")
	if !ok {
		return
	}

	application, err := h.service.Accept(r.Context(), ps.ByName("id"), req.OperatorID)
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}
	h.writeSuccess(w, "Accept", application)
}

func (h *MarketplaceHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, ok := h.decode(w, r, "Reject")
	if !ok {
		return
	}

	application, err := h.service.Reject(r.Context(), ps.ByName("id"), req.OperatorID, req.Reason)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}
	h.writeSuccess(w, "Reject", application)
}

func (h *MarketplaceHandler) decode(w http.ResponseWriter, r *http.Request, op string) (*validator.ApplicationInput, bool) {
	var req validator.ApplicationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "INVALID_INPUT",
			"message": "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write bad request response", "handler", op, "error", writeErr)
		}
		return nil, false
	}
	if err := h.validator.ValidateInput(&req); err != nil {
		h.writeError(w, op, err)
		return nil, false
	}
	return &req, true
}

func (h *MarketplaceHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

func (h *MarketplaceHandler) writeSuccess(w http.ResponseWriter, op string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", op, "error", err)
	}
}
