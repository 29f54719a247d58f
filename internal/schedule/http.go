package schedule

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handler exposes subject management plus the current-subject lookup the
// dashboards poll.
type Handler struct {
	repo     *Repository
	resolver *Resolver
	now      func() time.Time
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the handler. now defaults to time.Now.
func NewHandler(repo *Repository, resolver *Resolver, now func() time.Time, logger *slog.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{repo: repo, resolver: resolver, now: now, validate: validator.New(), logger: logger}
}

// RegisterAdminRoutes mounts subject CRUD on an admin-gated router.
func (h *Handler) RegisterAdminRoutes(router gin.IRouter) {
	router.POST("/subjects", h.Create)
	router.GET("/subjects", h.List)
	router.PUT("/subjects/:id", h.Update)
	router.DELETE("/subjects/:id", h.Delete)
}

// RegisterRoutes mounts endpoints available to any authenticated caller.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/subjects/current", h.Current)
}

type subjectRequest struct {
	Name             string `json:"name" validate:"required"`
	Code             string `json:"code" validate:"required"`
	DayOfWeek        string `json:"day_of_week" validate:"required"`
	StartTime        string `json:"start_time" validate:"required"`
	EndTime          string `json:"end_time" validate:"required"`
	AttendanceWindow int    `json:"attendance_window"`
}

// Create adds a weekly class slot.
func (h *Handler) Create(c *gin.Context) {
	s, ok := h.bind(c)
	if !ok {
		return
	}

	created, err := h.repo.Create(c.Request.Context(), s)
	if err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			c.JSON(http.StatusConflict, gin.H{"error": "Subject code already exists"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "create subject failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// List returns all subjects.
func (h *Handler) List(c *gin.Context) {
	subjects, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list subjects failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

// Update rewrites a subject definition.
func (h *Handler) Update(c *gin.Context) {
	s, ok := h.bind(c)
	if !ok {
		return
	}
	s.ID = c.Param("id")

	if err := h.repo.Update(c.Request.Context(), s); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subject not found"})
		case errors.Is(err, ErrDuplicateCode):
			c.JSON(http.StatusConflict, gin.H{"error": "Subject code already exists"})
		default:
			h.logger.ErrorContext(c.Request.Context(), "update subject failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subject updated"})
}

// Delete removes a subject.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subject not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "delete subject failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subject deleted"})
}

// Current reports the subject whose attendance window contains now. No
// eligible class is a normal state, not an error.
func (h *Handler) Current(c *gin.Context) {
	subjects, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list subjects failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	active, err := h.resolver.Active(h.now(), subjects)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "resolve active subject failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if active == nil {
		c.JSON(http.StatusOK, gin.H{"subject": nil, "message": "No active class at this time"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": active})
}

func (h *Handler) bind(c *gin.Context) (Subject, bool) {
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return Subject{}, false
	}
	s := Subject{
		Name:             req.Name,
		Code:             req.Code,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		AttendanceWindow: req.AttendanceWindow,
	}
	if err := s.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return Subject{}, false
	}
	return s, true
}
