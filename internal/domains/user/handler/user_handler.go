package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"marketplace-backend/internal/domains/user/model"
	"marketplace-backend/internal/domains/user/service"
	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/internal/shared/response"
	"marketplace-backend/pkg/logger"
)

type UserHandler struct {
	service service.Service
}

func NewHandler(service service.Service) *UserHandler {
	return &UserHandler{service: service}
}

// Register - POST /v1/auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	u, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		handleUserError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, u)
}

// Login - POST /v1/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		handleUserError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Me - GET /v1/auth/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	u, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		handleUserError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

func handleUserError(c *gin.Context, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"One or more fields are invalid", verrs)
		return
	}

	switch {
	case errors.Is(err, model.ErrEmailAlreadyExists):
		response.Conflict(c, "Email is already registered")
	case errors.Is(err, model.ErrInvalidCredentials):
		response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, model.ErrUserNotFound):
		response.NotFound(c, "User not found")
	default:
		logger.Error("user operation failed", err)
		response.InternalServerError(c, "Internal server error")
	}
}
