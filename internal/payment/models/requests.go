package models

import (
	"encoding/json"

	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
)

// CreateRequest registers a payment initiated by a TPP.
type CreateRequest struct {
	InstanceID            id.InstanceID
	TppID                 string      `validate:"required,notblank"`
	PaymentProduct        string      `validate:"required,notblank"`
	PaymentType           PaymentType `validate:"required"`
	PsuDataList           []scamodels.PsuIdData
	MultilevelScaRequired bool
	TppOKRedirectURI      string
	TppNOKRedirectURI     string
	Payload               json.RawMessage
}
