package attendance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"faceattend/internal/auth"
	"faceattend/internal/student"
)

// Queries is the read side used by the reporting endpoints. Satisfied by
// *Repository.
type Queries interface {
	Query(ctx context.Context, day, subjectID, studentID string) ([]Row, error)
	History(ctx context.Context, studentID string) ([]HistoryRow, error)
	StatsFor(ctx context.Context, today time.Time) (Stats, error)
}

// Handler exposes attendance marking and reporting.
type Handler struct {
	service  *Service
	queries  Queries
	loc      *time.Location
	now      func() time.Time
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the handler. now defaults to time.Now.
func NewHandler(service *Service, queries Queries, loc *time.Location, now func() time.Time, logger *slog.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{service: service, queries: queries, loc: loc, now: now, validate: validator.New(), logger: logger}
}

// RegisterRoutes mounts attendance endpoints for authenticated callers.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/attendance", h.Mark)
	router.GET("/attendance", h.Query)
	router.GET("/attendance/me", h.History)
}

// RegisterAdminRoutes mounts the admin-only reporting endpoints.
func (h *Handler) RegisterAdminRoutes(router gin.IRouter) {
	router.GET("/stats", h.Stats)
}

type markRequest struct {
	Image        string `json:"image" validate:"required"`
	LocationInfo string `json:"location_info"`
}

// Mark runs the attendance decision flow for the calling principal.
func (h *Handler) Mark(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	image, err := student.DecodeImage(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image encoding"})
		return
	}

	outcome, err := h.service.Mark(c.Request.Context(), p, image, req.LocationInfo)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "attendance attempt failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance attempt failed"})
		return
	}
	c.JSON(statusCode(outcome.Status), outcome)
}

func statusCode(s Status) int {
	switch s {
	case StatusRecorded:
		return http.StatusCreated
	case StatusAlreadyMarked:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// Query returns records for a day, optionally narrowed by subject.
// Students only ever see their own rows; admins see everyone's.
func (h *Handler) Query(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	day := c.Query("date")
	if day == "" {
		day = h.now().In(h.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	studentScope := ""
	if p.Role == auth.RoleStudent {
		studentScope = p.ID
	}
	rows, err := h.queries.Query(c.Request.Context(), day, c.Query("subject_id"), studentScope)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "attendance query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows})
}

// History returns the calling student's full attendance history.
func (h *Handler) History(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok || p.Role != auth.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": "student access required"})
		return
	}

	rows, err := h.queries.History(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "history query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows})
}

// Stats returns dashboard figures for today in the configured zone.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.queries.StatsFor(c.Request.Context(), h.now().In(h.loc))
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "stats query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
