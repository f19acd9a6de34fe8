package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guna684/book-shop-project-sub001/internal/auth"
	"github.com/guna684/book-shop-project-sub001/internal/common"
)

type Handler struct {
	Svc    *Service
	Logger *zerolog.Logger
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page := common.ParsePagination(r, 20, 100)
	orders, err := h.Svc.ListByUser(r.Context(), userID, page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders, "pagination": page})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.target(w, r)
	if !ok {
		return
	}
	v, err := h.Svc.Get(r.Context(), id, userID, common.HasRole(r.Context(), auth.RoleAdmin))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

// Invoice renders the order in the language requested by ?lang= or Accept-Language.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.target(w, r)
	if !ok {
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}
	inv, err := h.Svc.Invoice(r.Context(), id, userID, common.HasRole(r.Context(), auth.RoleAdmin), lang)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

type markPaidRequest struct {
	PaymentRef string `json:"paymentRef" validate:"required,max=128"`
}

// MarkPaid is the payment confirmation hook used by operators and the payment gateway integration.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var req markPaidRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteAppError(w, err)
		return
	}
	v, err := h.Svc.MarkPaid(r.Context(), id, req.PaymentRef)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": v})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return uuid.Nil, "", false
	}
	return id, userID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, ErrPaymentRef):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Error().Err(err).Msg("order request failed")
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order request failed", nil)
	}
}
