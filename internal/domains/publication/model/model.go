package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Publication states. The database only ever holds one of these.
const (
	StateActive   = "active"
	StateSold     = "sold"
	StateInactive = "inactive"
)

// MaxImages caps the gallery size per publication.
const MaxImages = 8

// ValidState reports whether s is one of the three legal states.
func ValidState(s string) bool {
	return s == StateActive || s == StateSold || s == StateInactive
}

// Publication is one marketplace listing. OwnerID is set at creation and
// never mutated.
type Publication struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	State       string          `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Joined data
	OwnerName  string  `json:"owner_name,omitempty"`
	OwnerEmail string  `json:"owner_email,omitempty"`
	Images     []Image `json:"images,omitempty"`
}

// Image is one gallery picture. Order determines display position within its
// publication; values are unique per publication but may have gaps after
// deletions. An image never moves between publications.
type Image struct {
	ID            uuid.UUID `json:"id"`
	PublicationID uuid.UUID `json:"publication_id"`
	URL           string    `json:"url"`
	StorageKey    string    `json:"-"`
	Order         int       `json:"order"`
}

// Summary is the feed row: publication fields plus the lowest-order image.
type Summary struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	State        string          `json:"state"`
	CreatedAt    time.Time       `json:"created_at"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	OwnerName    string          `json:"owner_name,omitempty"`
	PrimaryImage string          `json:"primary_image,omitempty"`
}
