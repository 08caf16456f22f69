package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuvalweil/RoomAssignmentSolver/internal/dto"
	"github.com/yuvalweil/RoomAssignmentSolver/internal/models"
	appErrors "github.com/yuvalweil/RoomAssignmentSolver/pkg/errors"
	"github.com/yuvalweil/RoomAssignmentSolver/pkg/response"
)

type assignmentService interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error)
	Preview(ctx context.Context, req dto.PreviewRequest) (*dto.SolveResponse, error)
	Validate(ctx context.Context, req dto.ValidateRequest) (*dto.ValidateResponse, error)
	Diagnose(ctx context.Context, bookingID, roomID string) (*dto.DiagnosticsResponse, error)
	Latest(ctx context.Context) (*dto.SolveResponse, error)
	Export(ctx context.Context, format string) ([]byte, string, error)
}

// AssignmentHandler exposes the booking, room and assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// RegisterRoutes mounts the handler under the given group.
func (h *AssignmentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/bookings", h.ListBookings)
	r.GET("/rooms", h.ListRooms)

	assignments := r.Group("/assignments")
	assignments.POST("/solve", h.Solve)
	assignments.POST("/preview", h.Preview)
	assignments.POST("/validate", h.Validate)
	assignments.GET("/latest", h.Latest)
	assignments.GET("/diagnostics/:bookingId", h.Diagnostics)
	assignments.GET("/export", h.Export)
}

// ListBookings godoc
// @Summary List stored bookings
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *AssignmentHandler) ListBookings(c *gin.Context) {
	bookings, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings)
}

// ListRooms godoc
// @Summary List the room pool
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *AssignmentHandler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms)
}

// Solve godoc
// @Summary Run the assignment solver over the stored inventory
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest true "Solve options"
// @Success 200 {object} response.Envelope
// @Router /assignments/solve [post]
func (h *AssignmentHandler) Solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	result, err := h.service.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Preview godoc
// @Summary Preview a solve with one booking pinned to a room
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.PreviewRequest true "Preview payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/preview [post]
func (h *AssignmentHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview payload"))
		return
	}
	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Validate godoc
// @Summary Validate a manually constructed assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.ValidateRequest true "Assignment to check"
// @Success 200 {object} response.Envelope
// @Router /assignments/validate [post]
func (h *AssignmentHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validate payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Latest godoc
// @Summary Return the latest persisted assignment run
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/latest [get]
func (h *AssignmentHandler) Latest(c *gin.Context) {
	result, err := h.service.Latest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Diagnostics godoc
// @Summary Itemise the soft penalty of one booking-room pairing
// @Tags Assignments
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Param roomId query string false "Room to score (defaults to the assigned room)"
// @Success 200 {object} response.Envelope
// @Router /assignments/diagnostics/{bookingId} [get]
func (h *AssignmentHandler) Diagnostics(c *gin.Context) {
	bookingID := c.Param("bookingId")
	result, err := h.service.Diagnose(c.Request.Context(), bookingID, c.Query("roomId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Export the latest run as CSV or PDF
// @Tags Assignments
// @Produce octet-stream
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /assignments/export [get]
func (h *AssignmentHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, filename, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if format == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}
