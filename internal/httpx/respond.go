package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

// statusForError сопоставляет доменные ошибки HTTP-статусам.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCourseNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDomainTaken):
		return http.StatusConflict
	case domain.IsConfigurationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTenantRequired),
		errors.Is(err, domain.ErrProductRequired),
		errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrCurrencyRequired),
		errors.Is(err, domain.ErrPriceInvalid),
		errors.Is(err, domain.ErrDiscountNotLower),
		errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrAmountTooSmall),
		errors.Is(err, domain.ErrOrderNotPaid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
