// Package handler exposes the consent lifecycle manager on the CMS PSU API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"xs2acms/internal/consent/models"
	"xs2acms/internal/consent/service"
	scamodels "xs2acms/internal/sca/models"
	"xs2acms/internal/transport/http/shared"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/httputil"
	"xs2acms/pkg/requestcontext"
)

// Service is the consent lifecycle manager as seen by the PSU API.
type Service interface {
	Create(ctx context.Context, req models.CreateRequest) (*models.Consent, error)
	Get(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (*models.Consent, error)
	Confirm(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error)
	Reject(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error)
	Revoke(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error)
	AuthorisePartially(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error)
	TerminateByTpp(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error)
	TerminateByAspsp(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error)
	UpdateMultilevelScaRequired(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, required bool) (bool, error)
	UpdateAccountAccess(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, access models.AccountAccess) (bool, error)
	GetPsuDataList(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) ([]scamodels.PsuIdData, error)
	ConsentsForPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Consent, error)

	CreateAuthorisation(ctx context.Context, req service.AuthorisationRequest) (*service.CreatedAuthorisation, error)
	UpdateAuthorisationStatus(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID, target scamodels.ScaStatus, input *scamodels.AuthenticationInput) (bool, error)
	ConfirmAuthorisationCode(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID, code string) (*service.CodeResult, error)
	UpdatePsuDataInConsent(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, psu scamodels.PsuIdData) (bool, error)
	GetAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error)
	GetAuthorisationScaStatus(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID) (scamodels.ScaStatus, bool, error)
	ListAuthorisationIDs(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authType scamodels.AuthorisationType) ([]id.AuthorisationID, error)
	ListPsuDataAuthorisations(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) ([]models.PsuAuthorisation, error)
	SaveAuthenticationMethods(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, methods []scamodels.ScaMethod) (bool, error)
	UpdateScaApproach(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, approach scamodels.ScaApproach) (bool, error)
	IsAuthenticationMethodDecoupled(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, methodID string) (bool, error)
	CheckRedirectAndGetConsent(ctx context.Context, instanceID id.InstanceID, redirectID string) (*service.RedirectResult, error)
}

// Handler serves the consent routes of the PSU API.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: svc}
}

// Register mounts the consent routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/consents", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleListForPsu)
		r.Get("/redirects/{redirectId}", h.handleCheckRedirect)

		r.Route("/authorisations/{authorisationId}", func(r chi.Router) {
			r.Get("/", h.handleGetAuthorisation)
			r.Put("/psu-data", h.handleUpdatePsuData)
			r.Put("/methods", h.handleSaveMethods)
			r.Get("/methods/{methodId}/decoupled", h.handleIsDecoupled)
			r.Put("/sca-approach/{approach}", h.handleUpdateScaApproach)
		})

		r.Route("/{consentId}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/status/{status}", h.handleUpdateStatus)
			r.Put("/multilevel-sca", h.handleUpdateMultilevelSca)
			r.Put("/access", h.handleUpdateAccess)
			r.Get("/psu-data", h.handleGetPsuData)
			r.Get("/psu-data/authorisations", h.handleListPsuAuthorisations)

			r.Post("/authorisations", h.handleCreateAuthorisation)
			r.Get("/authorisations", h.handleListAuthorisations)
			r.Get("/authorisations/{authorisationId}/status", h.handleGetScaStatus)
			r.Put("/authorisations/{authorisationId}/status/{status}", h.handleUpdateScaStatus)
			r.Put("/authorisations/{authorisationId}/code", h.handleConfirmCode)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateConsentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Create(ctx, req.toModel(httputil.InstanceID(r)))
	if err != nil {
		shared.Fail(ctx, h.logger, w, "create consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toConsentResponse(c))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(ctx, httputil.InstanceID(r), consentID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "get consent", err)
		return
	}
	if c == nil {
		httputil.WriteNotFound(w, "consent")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(c))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	status, err := models.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var apply func(context.Context, id.InstanceID, id.ConsentID) (bool, error)
	switch status {
	case models.StatusValid:
		apply = h.service.Confirm
	case models.StatusRejected:
		apply = h.service.Reject
	case models.StatusRevokedByPsu:
		apply = h.service.Revoke
	case models.StatusPartiallyAuthorised:
		apply = h.service.AuthorisePartially
	case models.StatusTerminatedByTpp:
		apply = h.service.TerminateByTpp
	case models.StatusTerminatedByAspsp:
		apply = h.service.TerminateByAspsp
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, status.String()+" cannot be set directly"))
		return
	}
	updated, err := apply(ctx, httputil.InstanceID(r), consentID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update consent status", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleUpdateMultilevelSca(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	required, err := strconv.ParseBool(r.URL.Query().Get("multilevelSca"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multilevelSca must be true or false"))
		return
	}
	updated, err := h.service.UpdateMultilevelScaRequired(ctx, httputil.InstanceID(r), consentID, required)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update multilevel sca", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleUpdateAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	access, ok := httputil.DecodeJSON[models.AccountAccess](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	updated, err := h.service.UpdateAccountAccess(ctx, httputil.InstanceID(r), consentID, *access)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update account access", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleGetPsuData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	psus, err := h.service.GetPsuDataList(ctx, httputil.InstanceID(r), consentID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "get psu data", err)
		return
	}
	if psus == nil {
		httputil.WriteNotFound(w, "consent")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, psus)
}

func (h *Handler) handleListForPsu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consents, err := h.service.ConsentsForPsu(ctx, httputil.InstanceID(r), shared.PsuFromHeaders(r))
	if err != nil {
		shared.Fail(ctx, h.logger, w, "list consents for psu", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponses(consents))
}

func (h *Handler) handleCreateAuthorisation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateAuthorisationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	created, err := h.service.CreateAuthorisation(ctx, service.AuthorisationRequest{
		InstanceID:        httputil.InstanceID(r),
		ConsentID:         consentID,
		PsuData:           req.PsuData,
		ScaApproach:       scamodels.ScaApproach(req.ScaApproach),
		ScaStatus:         scamodels.ScaStatus(req.ScaStatus),
		TppOKRedirectURI:  req.TppRedirectURI,
		TppNOKRedirectURI: req.TppNokRedirectURI,
	})
	if err != nil {
		shared.Fail(ctx, h.logger, w, "create authorisation", err)
		return
	}
	if created == nil {
		httputil.WriteNotFound(w, "consent")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreateAuthorisationResponse{
		AuthorisationID: created.Authorisation.ID.String(),
		RedirectID:      created.RedirectID,
		ScaStatus:       created.Authorisation.ScaStatus.String(),
	})
}

func (h *Handler) handleListAuthorisations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	authType := scamodels.AuthorisationTypeCreation
	if raw := r.URL.Query().Get("type"); raw != "" {
		parsed, err := scamodels.ParseAuthorisationType(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		authType = parsed
	}
	ids, err := h.service.ListAuthorisationIDs(ctx, httputil.InstanceID(r), consentID, authType)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "list authorisations", err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, authID := range ids {
		out = append(out, authID.String())
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetScaStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, authID, ok := h.consentAndAuthorisation(w, r)
	if !ok {
		return
	}
	status, found, err := h.service.GetAuthorisationScaStatus(ctx, httputil.InstanceID(r), consentID, authID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "get sca status", err)
		return
	}
	if !found {
		httputil.WriteNotFound(w, "authorisation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ScaStatusResponse{ScaStatus: status.String()})
}

func (h *Handler) handleUpdateScaStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, authID, ok := h.consentAndAuthorisation(w, r)
	if !ok {
		return
	}
	target, err := scamodels.ParseScaStatus(chi.URLParam(r, "status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	input, ok := shared.DecodeAuthenticationInput(w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateAuthorisationStatus(ctx, httputil.InstanceID(r), consentID, authID, target, input)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update sca status", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleConfirmCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, authID, ok := h.consentAndAuthorisation(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmationCodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.ConfirmAuthorisationCode(ctx, httputil.InstanceID(r), consentID, authID, req.Code)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "confirm authorisation code", err)
		return
	}
	if result == nil {
		httputil.WriteNotFound(w, "authorisation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CodeResponse{CodeCorrect: result.Matched, ScaStatus: result.ScaStatus.String()})
}

func (h *Handler) handleListPsuAuthorisations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	auths, err := h.service.ListPsuDataAuthorisations(ctx, httputil.InstanceID(r), consentID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "list psu authorisations", err)
		return
	}
	if auths == nil {
		httputil.WriteNotFound(w, "consent")
		return
	}
	out := make([]PsuAuthorisationResponse, 0, len(auths))
	for _, a := range auths {
		out = append(out, PsuAuthorisationResponse{
			AuthorisationID: a.AuthorisationID.String(),
			PsuData:         a.PsuData,
			ScaStatus:       a.ScaStatus.String(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetAuthorisation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authID, ok := h.authorisationID(w, r)
	if !ok {
		return
	}
	auth, err := h.service.GetAuthorisation(ctx, httputil.InstanceID(r), authID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "get authorisation", err)
		return
	}
	if auth == nil {
		httputil.WriteNotFound(w, "authorisation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuthorisationResponse(auth))
}

func (h *Handler) handleUpdatePsuData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authID, ok := h.authorisationID(w, r)
	if !ok {
		return
	}
	psu, ok := httputil.DecodeJSON[scamodels.PsuIdData](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if psu.IsEmpty() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "psuId is required"))
		return
	}
	updated, err := h.service.UpdatePsuDataInConsent(ctx, httputil.InstanceID(r), authID, *psu)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update psu data", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleSaveMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authID, ok := h.authorisationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AuthenticationMethodsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	updated, err := h.service.SaveAuthenticationMethods(ctx, httputil.InstanceID(r), authID, req.Methods)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "save authentication methods", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleUpdateScaApproach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authID, ok := h.authorisationID(w, r)
	if !ok {
		return
	}
	approach, err := scamodels.ParseScaApproach(chi.URLParam(r, "approach"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	updated, err := h.service.UpdateScaApproach(ctx, httputil.InstanceID(r), authID, approach)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update sca approach", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleIsDecoupled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authID, ok := h.authorisationID(w, r)
	if !ok {
		return
	}
	decoupled, err := h.service.IsAuthenticationMethodDecoupled(ctx, httputil.InstanceID(r), authID, chi.URLParam(r, "methodId"))
	if err != nil {
		shared.Fail(ctx, h.logger, w, "check decoupled method", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DecoupledResponse{Decoupled: decoupled})
}

func (h *Handler) handleCheckRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.CheckRedirectAndGetConsent(ctx, httputil.InstanceID(r), chi.URLParam(r, "redirectId"))
	if err != nil {
		shared.Fail(ctx, h.logger, w, "check redirect", err)
		return
	}
	if result == nil {
		httputil.WriteNotFound(w, "redirect")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRedirectResponse(result))
}

func (h *Handler) consentID(w http.ResponseWriter, r *http.Request) (id.ConsentID, bool) {
	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentId"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ConsentID{}, false
	}
	return consentID, true
}

func (h *Handler) authorisationID(w http.ResponseWriter, r *http.Request) (id.AuthorisationID, bool) {
	authID, err := id.ParseAuthorisationID(chi.URLParam(r, "authorisationId"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AuthorisationID{}, false
	}
	return authID, true
}

func (h *Handler) consentAndAuthorisation(w http.ResponseWriter, r *http.Request) (id.ConsentID, id.AuthorisationID, bool) {
	consentID, ok := h.consentID(w, r)
	if !ok {
		return id.ConsentID{}, id.AuthorisationID{}, false
	}
	authID, ok := h.authorisationID(w, r)
	return consentID, authID, ok
}
