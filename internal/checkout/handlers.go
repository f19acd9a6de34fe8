package checkout

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/guna684/book-shop-project-sub001/internal/common"
	"github.com/guna684/book-shop-project-sub001/internal/pricing"
)

type Handler struct {
	Svc    *Service
	Logger *zerolog.Logger
}

// Quote prices a cart without persisting anything.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload Input
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteAppError(w, err)
		return
	}
	userID, _ := common.UserID(r.Context())
	q, err := h.Svc.Quote(r.Context(), userID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Checkout places an order for the authenticated user.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload Input
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteAppError(w, err)
		return
	}
	out, err := h.Svc.PlaceOrder(r.Context(), userID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricing.ErrInvalidCartLine):
		common.JSONError(w, http.StatusBadRequest, "INVALID_CART_LINE", err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, ErrUnauthorized):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
	case common.IsAppError(err):
		common.WriteAppError(w, err)
	default:
		if h.Logger != nil {
			h.Logger.Error().Err(err).Msg("checkout failed")
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
