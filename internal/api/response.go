package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cortexnotes/cortex/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeInvalidOperation: http.StatusBadRequest,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeAlreadyExists:    http.StatusConflict,
	domain.ErrCodeUnauthorized:     http.StatusUnauthorized,
	domain.ErrCodeForbidden:        http.StatusForbidden,
	domain.ErrCodeInternalError:    http.StatusInternalServerError,
}

// DomainErrorToHTTP maps domain errors to HTTP status codes. Wrapped domain
// errors map by their code; anything else is a 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	if status, ok := statusByCode[domainErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	Error(w, DomainErrorToHTTP(err), err.Error())
}
