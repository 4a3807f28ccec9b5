package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ImageUpload is one raw uploaded file as received from the transport layer.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CreateInput carries a creation request into the service.
type CreateInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Images      []ImageUpload
}

// Validate reports every failing field, not just the first.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, 200).Error("title cannot exceed 200 characters"),
		),
		validation.Field(&in.Description,
			validation.Required.Error("description is required"),
		),
		validation.Field(&in.Price, validation.By(nonNegativePrice)),
		validation.Field(&in.Images,
			validation.Length(0, MaxImages).Error("a publication can have at most 8 images"),
		),
	)
}

// UpdateInput carries an edit request. State is never touched by Update.
type UpdateInput struct {
	Title          string
	Description    string
	Price          decimal.Decimal
	RemoveImageIDs []uuid.UUID
	Images         []ImageUpload
}

func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, 200).Error("title cannot exceed 200 characters"),
		),
		validation.Field(&in.Description,
			validation.Required.Error("description is required"),
		),
		validation.Field(&in.Price, validation.By(nonNegativePrice)),
		validation.Field(&in.Images,
			validation.Length(0, MaxImages).Error("a publication can have at most 8 images"),
		),
	)
}

func nonNegativePrice(value interface{}) error {
	price, ok := value.(decimal.Decimal)
	if !ok || price.IsNegative() {
		return errors.New("price must be a non-negative number")
	}
	return nil
}

// CreateResponse is returned by the create endpoint.
type CreateResponse struct {
	ID uuid.UUID `json:"id"`
}
