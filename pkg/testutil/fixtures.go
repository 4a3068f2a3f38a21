package testutil

import (
	"time"

	"github.com/google/uuid"

	consentmodels "xs2acms/internal/consent/models"
	paymentmodels "xs2acms/internal/payment/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
)

// TestInstance is the ASPSP instance fixtures are created in.
const TestInstance id.InstanceID = "bank-a"

// TestIDs provides deterministic identifiers for tests.
var TestIDs = struct {
	ConsentID1       id.ConsentID
	ConsentID2       id.ConsentID
	PaymentID1       id.PaymentID
	AuthorisationID1 id.AuthorisationID
	AuthorisationID2 id.AuthorisationID
}{
	ConsentID1:       id.ConsentID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	ConsentID2:       id.ConsentID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	PaymentID1:       id.PaymentID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	AuthorisationID1: id.AuthorisationID(uuid.MustParse("cccc0000-0000-0000-0000-000000000001")),
	AuthorisationID2: id.AuthorisationID(uuid.MustParse("cccc0000-0000-0000-0000-000000000002")),
}

// ConsentBuilder builds consents, RECEIVED and valid for a month by default.
type ConsentBuilder struct {
	consent *consentmodels.Consent
}

func NewConsentBuilder(now time.Time) *ConsentBuilder {
	return &ConsentBuilder{
		consent: &consentmodels.Consent{
			ID:              id.NewConsentID(),
			InstanceID:      TestInstance,
			TppID:           "tpp-1",
			ConsentType:     consentmodels.ConsentTypeAIS,
			Status:          consentmodels.StatusReceived,
			ValidUntil:      now.AddDate(0, 1, 0).Truncate(24 * time.Hour),
			FrequencyPerDay: 4,
			StatusChangedAt: now,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *ConsentBuilder) WithID(consentID id.ConsentID) *ConsentBuilder {
	b.consent.ID = consentID
	return b
}

func (b *ConsentBuilder) WithInstance(instanceID id.InstanceID) *ConsentBuilder {
	b.consent.InstanceID = instanceID
	return b
}

func (b *ConsentBuilder) WithTpp(tppID string) *ConsentBuilder {
	b.consent.TppID = tppID
	return b
}

func (b *ConsentBuilder) WithStatus(status consentmodels.Status) *ConsentBuilder {
	b.consent.Status = status
	return b
}

func (b *ConsentBuilder) WithPsus(psus ...scamodels.PsuIdData) *ConsentBuilder {
	b.consent.PsuDataList = psus
	return b
}

func (b *ConsentBuilder) WithAccounts(ibans ...string) *ConsentBuilder {
	refs := make([]consentmodels.AccountReference, 0, len(ibans))
	for _, iban := range ibans {
		refs = append(refs, consentmodels.AccountReference{IBAN: iban})
	}
	b.consent.TppAccess.Accounts = refs
	return b
}

func (b *ConsentBuilder) Multilevel() *ConsentBuilder {
	b.consent.MultilevelScaRequired = true
	return b
}

func (b *ConsentBuilder) Build() *consentmodels.Consent {
	return b.consent
}

// PaymentBuilder builds single payments in RCVD by default.
type PaymentBuilder struct {
	payment *paymentmodels.Payment
}

func NewPaymentBuilder(now time.Time) *PaymentBuilder {
	return &PaymentBuilder{
		payment: &paymentmodels.Payment{
			ID:              id.NewPaymentID(),
			InstanceID:      TestInstance,
			TppID:           "tpp-1",
			PaymentProduct:  "sepa-credit-transfers",
			PaymentType:     paymentmodels.PaymentTypeSingle,
			Status:          paymentmodels.StatusReceived,
			StatusChangedAt: now,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *PaymentBuilder) WithID(paymentID id.PaymentID) *PaymentBuilder {
	b.payment.ID = paymentID
	return b
}

func (b *PaymentBuilder) WithStatus(status paymentmodels.TransactionStatus) *PaymentBuilder {
	b.payment.Status = status
	return b
}

func (b *PaymentBuilder) WithPsus(psus ...scamodels.PsuIdData) *PaymentBuilder {
	b.payment.PsuDataList = psus
	return b
}

func (b *PaymentBuilder) Multilevel() *PaymentBuilder {
	b.payment.MultilevelScaRequired = true
	return b
}

func (b *PaymentBuilder) Build() *paymentmodels.Payment {
	return b.payment
}

// AuthorisationBuilder builds RECEIVED creation authorisations of a consent
// by default.
type AuthorisationBuilder struct {
	auth *scamodels.Authorisation
}

func NewAuthorisationBuilder(now time.Time) *AuthorisationBuilder {
	return &AuthorisationBuilder{
		auth: &scamodels.Authorisation{
			ID:          id.NewAuthorisationID(),
			InstanceID:  TestInstance,
			ParentID:    uuid.UUID(TestIDs.ConsentID1),
			ParentType:  scamodels.ParentConsent,
			Type:        scamodels.AuthorisationTypeCreation,
			ScaStatus:   scamodels.ScaStatusReceived,
			ScaApproach: scamodels.ScaApproachRedirect,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

func (b *AuthorisationBuilder) WithID(authID id.AuthorisationID) *AuthorisationBuilder {
	b.auth.ID = authID
	return b
}

func (b *AuthorisationBuilder) ForConsent(consentID id.ConsentID) *AuthorisationBuilder {
	b.auth.ParentID = uuid.UUID(consentID)
	b.auth.ParentType = scamodels.ParentConsent
	return b
}

func (b *AuthorisationBuilder) ForPayment(paymentID id.PaymentID) *AuthorisationBuilder {
	b.auth.ParentID = uuid.UUID(paymentID)
	b.auth.ParentType = scamodels.ParentPayment
	return b
}

func (b *AuthorisationBuilder) Cancellation() *AuthorisationBuilder {
	b.auth.Type = scamodels.AuthorisationTypeCancellation
	return b
}

func (b *AuthorisationBuilder) WithPsu(psuID string) *AuthorisationBuilder {
	b.auth.PsuData = &scamodels.PsuIdData{PsuID: psuID}
	return b
}

func (b *AuthorisationBuilder) WithStatus(status scamodels.ScaStatus) *AuthorisationBuilder {
	b.auth.ScaStatus = status
	return b
}

func (b *AuthorisationBuilder) ExpiresAt(t time.Time) *AuthorisationBuilder {
	b.auth.ExpiresAt = &t
	return b
}

func (b *AuthorisationBuilder) RedirectExpiresAt(t time.Time) *AuthorisationBuilder {
	b.auth.RedirectURLExpiresAt = &t
	return b
}

func (b *AuthorisationBuilder) Build() *scamodels.Authorisation {
	return b.auth
}
