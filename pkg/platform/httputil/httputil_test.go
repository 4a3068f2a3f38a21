package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "consent not found"), http.StatusNotFound, "not_found"},
		{"invalid transition", dErrors.New(dErrors.CodeInvalidTransition, "FINALISED to STARTED"), http.StatusBadRequest, "invalid_transition"},
		{"closed parent", dErrors.New(dErrors.CodeInvalidState, "consent is already REVOKED_BY_PSU"), http.StatusBadRequest, "invalid_state"},
		{"checksum", dErrors.New(dErrors.CodeWrongChecksum, "consent was modified"), http.StatusConflict, "wrong_checksum"},
		{"concurrent", dErrors.New(dErrors.CodeConcurrentModification, "retry"), http.StatusConflict, "concurrent_modification"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
		})
	}
}

func TestWriteError_CarriesNokRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, dErrors.WithRedirect(dErrors.CodeRedirectExpired, "redirect URL expired", "https://tpp.example/nok"))

	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "redirect_expired", resp.Error)
	assert.Equal(t, "https://tpp.example/nok", resp.TppNokRedirectURI)
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, dErrors.Wrap(errors.New("pq: relation missing"), dErrors.CodeInternal, "failed to load consent"))
	assert.Empty(t, decodeError(t, w).Description)
}

func TestInstanceID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, id.DefaultInstanceID, InstanceID(r))

	r.Header.Set(HeaderInstanceID, "bank-a")
	assert.Equal(t, id.InstanceID("bank-a"), InstanceID(r))
}

func TestWriteResult(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResult(w, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "true", w.Body.String())

	w = httptest.NewRecorder()
	WriteResult(w, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, "false", w.Body.String())
}
