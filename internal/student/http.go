package student

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"faceattend/internal/face"
	"faceattend/internal/metrics"
)

// Handler exposes admin-only enrollment endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewHandler creates the handler.
func NewHandler(service *Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger, metrics: m}
}

// RegisterRoutes mounts enrollment management on an admin-gated router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/students", h.Register)
	router.GET("/students", h.List)
	router.PUT("/students/:id", h.Update)
	router.DELETE("/students/:id", h.Delete)
}

type registerRequest struct {
	Name       string `json:"name" validate:"required"`
	RollNumber string `json:"roll_number" validate:"required"`
	Password   string `json:"password" validate:"required,min=6"`
	Image      string `json:"image" validate:"required"`
}

// Register enrolls a student from a captured face sample.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	image, err := DecodeImage(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image encoding"})
		return
	}

	created, err := h.service.Register(c.Request.Context(), req.Name, req.RollNumber, req.Password, image)
	if err != nil {
		switch {
		case errors.Is(err, face.ErrNoFace):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No face detected in image"})
		case errors.Is(err, ErrDuplicateRoll):
			c.JSON(http.StatusConflict, gin.H{"error": "Roll number already exists"})
		default:
			h.logger.ErrorContext(c.Request.Context(), "registration failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}
	h.metrics.RecordRegistration()
	c.JSON(http.StatusCreated, created)
}

// List returns all enrolled students.
func (h *Handler) List(c *gin.Context) {
	students, err := h.service.List(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list students failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type updateRequest struct {
	Name       string `json:"name" validate:"required"`
	RollNumber string `json:"roll_number" validate:"required"`
	Password   string `json:"password"`
}

// Update changes a student's details; the descriptor stays untouched.
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.service.Update(c.Request.Context(), c.Param("id"), req.Name, req.RollNumber, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		case errors.Is(err, ErrDuplicateRoll):
			c.JSON(http.StatusConflict, gin.H{"error": "Roll number already exists"})
		default:
			h.logger.ErrorContext(c.Request.Context(), "update student failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "student updated"})
}

// Delete removes a student and their attendance history.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "delete student failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "student deleted"})
}

// DecodeImage accepts either a raw base64 payload or a browser data URL
// ("data:image/jpeg;base64,...").
func DecodeImage(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
