package model

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/internal/shared/response"
	"marketplace-backend/pkg/logger"
)

var (
	ErrPublicationNotFound = errors.New("publication not found")
	ErrForbidden           = errors.New("requester does not own this publication")
	ErrTooManyImages       = errors.New("publication cannot exceed 8 images")
	ErrInvalidState        = errors.New("state must be active, sold or inactive")
)

var publicationErrorMap = map[error]struct {
	Status  int
	Code    string
	Message string
}{
	ErrPublicationNotFound: {
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: "The specified publication does not exist",
	},
	ErrForbidden: {
		Status:  http.StatusForbidden,
		Code:    "FORBIDDEN",
		Message: "You do not have permission to modify this publication",
	},
	ErrTooManyImages: {
		Status:  http.StatusBadRequest,
		Code:    "TOO_MANY_IMAGES",
		Message: "A publication can have at most 8 images",
	},
	ErrInvalidState: {
		Status:  http.StatusBadRequest,
		Code:    "INVALID_STATE",
		Message: "State must be one of: active, sold, inactive",
	},
	storage.ErrUnsupportedMediaType: {
		Status:  http.StatusUnsupportedMediaType,
		Code:    "UNSUPPORTED_MEDIA_TYPE",
		Message: "Only jpeg, jpg, png, gif and webp images are allowed",
	},
	storage.ErrPayloadTooLarge: {
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "PAYLOAD_TOO_LARGE",
		Message: "Images cannot exceed 10MB",
	},
	storage.ErrStorageUnavailable: {
		Status:  http.StatusServiceUnavailable,
		Code:    "STORAGE_UNAVAILABLE",
		Message: "Image storage is temporarily unavailable, please retry",
	},
	storage.ErrStorageQuotaExceeded: {
		Status:  http.StatusServiceUnavailable,
		Code:    "STORAGE_QUOTA_EXCEEDED",
		Message: "Image storage rejected the upload",
	},
}

// HandlePublicationError maps service errors to transport responses. Returns
// true when err was handled.
func HandlePublicationError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	// Validation failures carry per-field details.
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"One or more fields are invalid", verrs)
		return true
	}

	for sentinel, cfg := range publicationErrorMap {
		if errors.Is(err, sentinel) {
			response.ErrorResponse(c, cfg.Status, cfg.Code, cfg.Message)
			return true
		}
	}

	logger.Error("publication operation failed", err)
	response.InternalServerError(c, "Internal server error")
	return true
}
