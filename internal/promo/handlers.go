package promo

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/common"
)

// Handler exposes promo validation and administrative endpoints.
type Handler struct {
	Svc    *Service
	Logger *zerolog.Logger
}

type validateRequest struct {
	Code      string          `json:"code" validate:"required,max=64"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

// Validate answers whether a code applies to the given cart total.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo service not configured", nil)
		return
	}
	var req validateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteAppError(w, err)
		return
	}
	if req.CartTotal.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartTotal must not be negative", nil)
		return
	}
	userID, _ := common.UserID(r.Context())
	result, err := h.Svc.Validate(r.Context(), req.Code, userID, req.CartTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Create inserts a new promo code.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteAppError(w, err)
		return
	}
	p, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

// Update replaces the editable fields of the promo named in the path.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteAppError(w, err)
		return
	}
	p, err := h.Svc.Update(r.Context(), code, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Get returns a single promo.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// List pages through promos.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := common.ParsePagination(r, 20, 100)
	promos, err := h.Svc.List(r.Context(), page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": promos, "pagination": page})
}

// Deactivate turns a promo off.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Deactivate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promo code not found", nil)
	case errors.Is(err, ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "promo code already exists", nil)
	case errors.Is(err, ErrInvalidPromo):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Error().Err(err).Msg("promo request failed")
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo request failed", nil)
	}
}
