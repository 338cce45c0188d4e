package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearway-labs/psp-console/internal/domain"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
	}

	if response.Success {
		response.Data = data
	} else {
		if apiErr, ok := data.(*APIError); ok {
			response.Error = apiErr
		}
	}

	_ = json.NewEncoder(w).Encode(response)
}

func respondWithError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	code := domain.ErrCodeInternal
	message := err.Error()
	status := http.StatusInternalServerError

	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message

		switch domainErr.Code {
		case domain.ErrCodeValidation, domain.ErrCodeInvalidAmount, domain.ErrCodeUnknownMerchant:
			status = http.StatusBadRequest
		case domain.ErrCodeNotFound:
			status = http.StatusNotFound
		case domain.ErrCodeInvalidState:
			status = http.StatusConflict
		case domain.ErrCodeUnavailable:
			status = http.StatusBadGateway
		case domain.ErrCodeInternal:
			status = http.StatusInternalServerError
		default:
			status = http.StatusBadRequest
		}
	}

	respondWithJSON(w, status, &APIError{
		Code:    code,
		Message: message,
	})
}

// respondWithFieldErrors reports a draft validation failure with the per-field
// messages the form shows inline.
func respondWithFieldErrors(w http.ResponseWriter, fields domain.FieldErrors) {
	respondWithJSON(w, http.StatusBadRequest, &APIError{
		Code:    domain.ErrCodeValidation,
		Message: "payment draft failed validation",
		Fields:  fields,
	})
}
