package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handler exposes login and password-reset endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

// RegisterRoutes mounts the public auth endpoints.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/auth/login", h.Login)
	router.POST("/auth/forgot-password", h.ForgotPassword)
	router.POST("/auth/reset-password", h.ResetPassword)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	UserType   string `json:"user_type" validate:"required,oneof=admin student"`
}

// Login authenticates an admin by username or a student by roll number.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Identifier, req.Password, req.UserType)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, token)
}

type forgotRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	UserType   string `json:"user_type" validate:"required,oneof=admin student"`
}

// ForgotPassword generates a reset code and hands it to the delivery
// queue. The code is never part of the response.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.service.RequestReset(c.Request.Context(), req.Identifier, req.UserType); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "reset request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset request failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reset code sent"})
}

type resetRequest struct {
	Identifier  string `json:"identifier" validate:"required"`
	UserType    string `json:"user_type" validate:"required,oneof=admin student"`
	ResetCode   string `json:"reset_code" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ResetPassword consumes a reset code and sets the new password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Identifier, req.UserType, req.ResetCode, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrInvalidResetCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset code"})
		case errors.Is(err, ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.logger.ErrorContext(c.Request.Context(), "password reset failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password reset failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset successfully"})
}
