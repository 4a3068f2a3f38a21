// Package handler exposes the payment lifecycle manager on the CMS PSU API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"xs2acms/internal/payment/models"
	"xs2acms/internal/payment/service"
	scamodels "xs2acms/internal/sca/models"
	"xs2acms/internal/transport/http/shared"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/httputil"
	"xs2acms/pkg/requestcontext"
)

// Service is the payment lifecycle manager as seen by the PSU API.
type Service interface {
	Create(ctx context.Context, req models.CreateRequest) (*models.Payment, error)
	Get(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, status string) (bool, error)
	UpdateMultilevelScaRequired(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, required bool) (bool, error)
	GetPsuDataList(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID) ([]scamodels.PsuIdData, error)
	PaymentsForPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Payment, error)

	CreateAuthorisation(ctx context.Context, req service.AuthorisationRequest) (*service.CreatedAuthorisation, error)
	UpdateAuthorisationStatus(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID, target scamodels.ScaStatus, input *scamodels.AuthenticationInput) (bool, error)
	ConfirmAuthorisationCode(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID, code string) (*service.CodeResult, error)
	UpdatePsuDataInPayment(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, psu scamodels.PsuIdData) (bool, error)
	GetAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error)
	GetAuthorisationScaStatus(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID) (scamodels.ScaStatus, bool, error)
	ListAuthorisationIDs(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authType scamodels.AuthorisationType) ([]id.AuthorisationID, error)
	CheckRedirectAndGetPayment(ctx context.Context, instanceID id.InstanceID, redirectID string) (*service.RedirectResult, error)
	CheckRedirectAndGetPaymentForCancellation(ctx context.Context, instanceID id.InstanceID, redirectID string) (*service.RedirectResult, error)
}

// Handler serves the payment routes of the PSU API.
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

// Register mounts the payment routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleListForPsu)
		r.Get("/redirects/{redirectId}", h.handleCheckRedirect(scamodels.AuthorisationTypeCreation))
		r.Get("/cancellation-redirects/{redirectId}", h.handleCheckRedirect(scamodels.AuthorisationTypeCancellation))
		r.Get("/authorisations/{authorisationId}", h.handleGetAuthorisation)
		r.Put("/authorisations/{authorisationId}/psu-data", h.handleUpdatePsuData)

		r.Route("/{paymentId}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/status/{status}", h.handleUpdateStatus)
			r.Put("/multilevel-sca", h.handleUpdateMultilevelSca)
			r.Get("/psu-data", h.handleGetPsuData)

			r.Post("/authorisations", h.handleCreateAuthorisation(scamodels.AuthorisationTypeCreation))
			r.Post("/cancellation-authorisations", h.handleCreateAuthorisation(scamodels.AuthorisationTypeCancellation))
			r.Get("/authorisations", h.handleListAuthorisations)
			r.Get("/authorisations/{authorisationId}/status", h.handleGetScaStatus)
			r.Put("/authorisations/{authorisationId}/status/{status}", h.handleUpdateScaStatus)
			r.Put("/authorisations/{authorisationId}/code", h.handleConfirmCode)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreatePaymentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Create(ctx, req.toModel(httputil.InstanceID(r)))
	if err != nil {
		shared.Fail(ctx, h.logger, w, "create payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, httputil.InstanceID(r), paymentID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "get payment", err)
		return
	}
	if p == nil {
		httputil.WriteNotFound(w, "payment")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdatePaymentStatus(ctx, httputil.InstanceID(r), paymentID, chi.URLParam(r, "status"))
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update payment status", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleUpdateMultilevelSca(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	required, err := strconv.ParseBool(r.URL.Query().Get("multilevelSca"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multilevelSca must be true or false"))
		return
	}
	updated, err := h.service.UpdateMultilevelScaRequired(ctx, httputil.InstanceID(r), paymentID, required)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update multilevel sca", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleGetPsuData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	psus, err := h.service.GetPsuDataList(ctx, httputil.InstanceID(r), paymentID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "get psu data", err)
		return
	}
	if psus == nil {
		httputil.WriteNotFound(w, "payment")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, psus)
}

func (h *Handler) handleListForPsu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payments, err := h.service.PaymentsForPsu(ctx, httputil.InstanceID(r), shared.PsuFromHeaders(r))
	if err != nil {
		shared.Fail(ctx, h.logger, w, "list payments for psu", err)
		return
	}
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateAuthorisation(authType scamodels.AuthorisationType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		paymentID, ok := h.paymentID(w, r)
		if !ok {
			return
		}
		req, ok := httputil.DecodeAndPrepare[CreateAuthorisationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
		created, err := h.service.CreateAuthorisation(ctx, service.AuthorisationRequest{
			InstanceID:        httputil.InstanceID(r),
			PaymentID:         paymentID,
			Type:              authType,
			PsuData:           req.PsuData,
			ScaApproach:       scamodels.ScaApproach(req.ScaApproach),
			ScaStatus:         scamodels.ScaStatus(req.ScaStatus),
			TppOKRedirectURI:  req.TppRedirectURI,
			TppNOKRedirectURI: req.TppNokRedirectURI,
		})
		if err != nil {
			shared.Fail(ctx, h.logger, w, "create payment authorisation", err)
			return
		}
		if created == nil {
			httputil.WriteNotFound(w, "payment")
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, CreateAuthorisationResponse{
			AuthorisationID: created.Authorisation.ID.String(),
			RedirectID:      created.RedirectID,
			ScaStatus:       created.Authorisation.ScaStatus.String(),
		})
	}
}

func (h *Handler) handleListAuthorisations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, ok := h.paymentID(w, r)
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
	ids, err := h.service.ListAuthorisationIDs(ctx, httputil.InstanceID(r), paymentID, authType)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "list payment authorisations", err)
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
	paymentID, authID, ok := h.paymentAndAuthorisation(w, r)
	if !ok {
		return
	}
	status, found, err := h.service.GetAuthorisationScaStatus(ctx, httputil.InstanceID(r), paymentID, authID)
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
	paymentID, authID, ok := h.paymentAndAuthorisation(w, r)
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
	updated, err := h.service.UpdateAuthorisationStatus(ctx, httputil.InstanceID(r), paymentID, authID, target, input)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update sca status", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleConfirmCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, authID, ok := h.paymentAndAuthorisation(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmationCodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.ConfirmAuthorisationCode(ctx, httputil.InstanceID(r), paymentID, authID, req.Code)
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

func (h *Handler) handleGetAuthorisation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authID, ok := h.authorisationID(w, r)
	if !ok {
		return
	}
	auth, err := h.service.GetAuthorisation(ctx, httputil.InstanceID(r), authID)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "get payment authorisation", err)
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
	updated, err := h.service.UpdatePsuDataInPayment(ctx, httputil.InstanceID(r), authID, *psu)
	if err != nil {
		shared.Fail(ctx, h.logger, w, "update psu data", err)
		return
	}
	httputil.WriteResult(w, updated)
}

func (h *Handler) handleCheckRedirect(authType scamodels.AuthorisationType) http.HandlerFunc {
	check := h.service.CheckRedirectAndGetPayment
	if authType == scamodels.AuthorisationTypeCancellation {
		check = h.service.CheckRedirectAndGetPaymentForCancellation
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		result, err := check(ctx, httputil.InstanceID(r), chi.URLParam(r, "redirectId"))
		if err != nil {
			shared.Fail(ctx, h.logger, w, "check payment redirect", err)
			return
		}
		if result == nil {
			httputil.WriteNotFound(w, "redirect")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toRedirectResponse(result))
	}
}

func (h *Handler) paymentID(w http.ResponseWriter, r *http.Request) (id.PaymentID, bool) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentId"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PaymentID{}, false
	}
	return paymentID, true
}

func (h *Handler) authorisationID(w http.ResponseWriter, r *http.Request) (id.AuthorisationID, bool) {
	authID, err := id.ParseAuthorisationID(chi.URLParam(r, "authorisationId"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AuthorisationID{}, false
	}
	return authID, true
}

func (h *Handler) paymentAndAuthorisation(w http.ResponseWriter, r *http.Request) (id.PaymentID, id.AuthorisationID, bool) {
	paymentID, ok := h.paymentID(w, r)
	if !ok {
		return id.PaymentID{}, id.AuthorisationID{}, false
	}
	authID, ok := h.authorisationID(w, r)
	return paymentID, authID, ok
}
