package location

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handler exposes admin-only location management.
type Handler struct {
	repo     *Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the handler.
func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, validate: validator.New(), logger: logger}
}

// RegisterRoutes mounts location CRUD on an admin-gated router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/locations", h.Create)
	router.GET("/locations", h.List)
	router.PUT("/locations/:id", h.Update)
	router.DELETE("/locations/:id", h.Delete)
}

type locationRequest struct {
	Name      string   `json:"name" validate:"required"`
	WifiSSID  *string  `json:"wifi_ssid"`
	IPRange   *string  `json:"ip_range"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    int      `json:"radius"`
}

// Create adds a location.
func (h *Handler) Create(c *gin.Context) {
	l, ok := h.bind(c)
	if !ok {
		return
	}

	created, err := h.repo.Create(c.Request.Context(), l)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "create location failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// List returns active locations.
func (h *Handler) List(c *gin.Context) {
	locations, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list locations failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

// Update rewrites an active location.
func (h *Handler) Update(c *gin.Context) {
	l, ok := h.bind(c)
	if !ok {
		return
	}
	l.ID = c.Param("id")

	if err := h.repo.Update(c.Request.Context(), l); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "update location failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "location updated"})
}

// Delete deactivates a location; rows stay for historical context.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "delete location failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "location deleted"})
}

func (h *Handler) bind(c *gin.Context) (Location, bool) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return Location{}, false
	}
	return Location{
		Name:      req.Name,
		WifiSSID:  req.WifiSSID,
		IPRange:   req.IPRange,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Radius:    req.Radius,
	}, true
}
