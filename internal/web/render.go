package web

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/zealmehta21/nevermiss/internal/errors"
)

// renderJSON writes data as a JSON response with the given status.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes err as {"error": {code, message, status}}.
// Errors outside the taxonomy become INTERNAL and their text is not exposed.
func renderError(w http.ResponseWriter, err error) {
	var nmErr *errors.Error
	if !stderrors.As(err, &nmErr) {
		nmErr = errors.NewInternal(err)
	}

	errorObj := map[string]any{
		"code":    string(nmErr.Code),
		"message": nmErr.Message,
		"status":  nmErr.Status,
	}
	if nmErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if nmErr.Details != nil {
		errorObj["details"] = nmErr.Details
	}
	renderJSON(w, nmErr.Status, map[string]any{"error": errorObj})
}
