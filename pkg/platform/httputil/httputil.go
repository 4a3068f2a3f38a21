// Package httputil holds the JSON response and error envelope shared by the
// CMS PSU API handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

// HeaderInstanceID selects the CMS instance (multi-tenant ASPSP) of a request.
const HeaderInstanceID = "instance-id"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	// TppNokRedirectURI tells the PSU frontend where to send the PSU when an
	// authorisation or its redirect URL lapsed.
	TppNokRedirectURI string `json:"tppNokRedirectUri,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; an encoding failure can only truncate the body.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into its HTTP status and envelope.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: DomainCodeToHTTPCode(dErrors.CodeInternal)})
		return
	}
	resp := ErrorResponse{Error: DomainCodeToHTTPCode(domainErr.Code)}
	if uri, ok := dErrors.RedirectURI(err); ok {
		resp.TppNokRedirectURI = uri
	}
	if domainErr.Code != dErrors.CodeInternal {
		resp.Description = domainErr.Message
	}
	WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), resp)
}

// WriteNotFound answers a lookup of an entity that does not exist in the instance.
func WriteNotFound(w http.ResponseWriter, what string) {
	WriteError(w, dErrors.New(dErrors.CodeNotFound, what+" not found"))
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation,
		dErrors.CodeInvalidTransition, dErrors.CodeInvalidState:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeWrongChecksum, dErrors.CodeConcurrentModification:
		return http.StatusConflict
	case dErrors.CodeAuthorisationExpired, dErrors.CodeRedirectExpired:
		return http.StatusRequestTimeout
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the "error" field.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return "validation_error"
	case dErrors.CodeNotFound, dErrors.CodeConflict, dErrors.CodeTimeout,
		dErrors.CodeInvalidTransition, dErrors.CodeInvalidState, dErrors.CodeWrongChecksum,
		dErrors.CodeAuthorisationExpired, dErrors.CodeRedirectExpired, dErrors.CodeConcurrentModification:
		return string(code)
	default:
		return "internal_error"
	}
}

// InstanceID reads the instance-id header, defaulting to id.DefaultInstanceID.
func InstanceID(r *http.Request) id.InstanceID {
	return id.ParseInstanceID(r.Header.Get(HeaderInstanceID))
}

// WriteResult answers an update reporting whether it was applied. An update
// that did not apply is 400 with a false body.
func WriteResult(w http.ResponseWriter, ok bool) {
	if !ok {
		WriteJSON(w, http.StatusBadRequest, false)
		return
	}
	WriteJSON(w, http.StatusOK, true)
}
