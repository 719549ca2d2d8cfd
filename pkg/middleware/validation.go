// pkg/middleware/validation.go

package middleware

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodySize = 1 << 20

// ErrorResponse is the JSON body of a rejected request.
type ErrorResponse struct {
	Error string      `json:"error"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// ValidateRequest enforces a JSON content type and a non-empty, bounded body on POST/PUT.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				WriteError(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid Content-Type, expected application/json"})
				return
			}

			if r.ContentLength == 0 {
				WriteError(w, http.StatusBadRequest, ErrorResponse{Error: "Request body cannot be empty"})
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		next.ServeHTTP(w, r)
	})
}

// HandleValidationError reports the first failing field of a validator error.
func HandleValidationError(w http.ResponseWriter, err error) {
	log.Printf("Validation error: %v", err)

	resp := ErrorResponse{Error: err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		resp.Error = "field " + fe.Field() + " failed " + fe.Tag()
		resp.Field = fe.Field()
		resp.Value = fe.Value()
	}

	WriteError(w, http.StatusBadRequest, resp)
}

func WriteError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
