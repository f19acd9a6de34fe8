package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/guna684/book-shop-project-sub001/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Promos returns the promo report. from/to accept YYYY-MM-DD or RFC3339; a date-only
// "to" includes that whole day. Without bounds the last ?days= (default range) days are used.
func (h *Handler) Promos(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	query := r.URL.Query()
	fromStr := query.Get("from")
	toStr := query.Get("to")
	var (
		from time.Time
		to   time.Time
		err  error
	)
	if fromStr != "" && toStr != "" {
		from, _, err = parseBound(fromStr)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from date", nil)
			return
		}
		var dateOnly bool
		to, dateOnly, err = parseBound(toStr)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to date", nil)
			return
		}
		if dateOnly {
			to = to.AddDate(0, 0, 1)
		}
	} else {
		from, to = h.Svc.DefaultWindow()
		if raw := query.Get("days"); raw != "" {
			days, convErr := strconv.Atoi(raw)
			if convErr != nil || days <= 0 {
				common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "days must be a positive integer", nil)
				return
			}
			from = to.AddDate(0, 0, -days)
		}
	}
	if !from.Before(to) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be before to", nil)
		return
	}
	summary, err := h.Svc.PromoSummary(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", "failed to build promo report", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

func parseBound(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	return t, false, err
}
