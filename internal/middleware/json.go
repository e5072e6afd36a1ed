package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go-bookshelf/internal/model"
	"go-bookshelf/pkg/apierror"
)

func jsonEncode(w http.ResponseWriter, value any) error {
	return json.NewEncoder(w).Encode(value)
}

func writeAPIError(w http.ResponseWriter, err *apierror.APIError) {
	if secs := err.RetryAfterSeconds(); secs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	_ = jsonEncode(w, model.ErrorResponse(err.Code, err.Message, err.Details))
}
