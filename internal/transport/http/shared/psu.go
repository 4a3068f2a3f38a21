// Package shared holds request helpers common to the consent and payment
// routes of the PSU API.
package shared

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	scamodels "xs2acms/internal/sca/models"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/httputil"
	"xs2acms/pkg/requestcontext"
)

// PSU identification headers.
const (
	HeaderPsuID              = "psu-id"
	HeaderPsuIDType          = "psu-id-type"
	HeaderPsuCorporateID     = "psu-corporate-id"
	HeaderPsuCorporateIDType = "psu-corporate-id-type"
)

// PsuFromHeaders reads the PSU identification headers.
func PsuFromHeaders(r *http.Request) scamodels.PsuIdData {
	return scamodels.PsuIdData{
		PsuID:              strings.TrimSpace(r.Header.Get(HeaderPsuID)),
		PsuIDType:          strings.TrimSpace(r.Header.Get(HeaderPsuIDType)),
		PsuCorporateID:     strings.TrimSpace(r.Header.Get(HeaderPsuCorporateID)),
		PsuCorporateIDType: strings.TrimSpace(r.Header.Get(HeaderPsuCorporateIDType)),
	}
}

// AuthenticationRequest optionally accompanies an SCA status update.
type AuthenticationRequest struct {
	AuthenticationMethodID string `json:"authenticationMethodId"`
	Code                   string `json:"code,omitempty"`
}

// DecodeAuthenticationInput reads the optional body of an SCA status update.
// An empty body yields nil. On a malformed body it writes bad_request and
// returns false.
func DecodeAuthenticationInput(w http.ResponseWriter, r *http.Request) (*scamodels.AuthenticationInput, bool) {
	var req AuthenticationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, true
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if req.AuthenticationMethodID == "" && req.Code == "" {
		return nil, true
	}
	return &scamodels.AuthenticationInput{MethodID: req.AuthenticationMethodID, Code: req.Code}, true
}

// Fail logs err at a level matching its code and writes the error response.
func Fail(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		logger.ErrorContext(ctx, "failed to "+op, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		logger.InfoContext(ctx, op+" refused", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
