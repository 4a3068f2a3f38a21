package models

import (
	"encoding/json"
	"time"

	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
)

// CreateRequest carries the fields of a new consent as forwarded by the XS2A layer.
type CreateRequest struct {
	InstanceID               id.InstanceID
	TppID                    string      `validate:"required,notblank"`
	ConsentType              ConsentType `validate:"required"`
	PsuDataList              []scamodels.PsuIdData
	Access                   AccountAccess
	ValidUntil               time.Time `validate:"required"`
	FrequencyPerDay          int       `validate:"min=0"`
	RecurringIndicator       bool
	CombinedServiceIndicator bool
	MultilevelScaRequired    bool
	TppOKRedirectURI         string
	TppNOKRedirectURI        string
	Payload                  json.RawMessage
}

// PsuAuthorisation pairs an authorisation with the PSU that runs it.
type PsuAuthorisation struct {
	AuthorisationID id.AuthorisationID
	PsuData         scamodels.PsuIdData
	ScaStatus       scamodels.ScaStatus
}
