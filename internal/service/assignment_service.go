package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/yuvalweil/RoomAssignmentSolver/internal/dto"
	"github.com/yuvalweil/RoomAssignmentSolver/internal/models"
	"github.com/yuvalweil/RoomAssignmentSolver/internal/solver"
	appErrors "github.com/yuvalweil/RoomAssignmentSolver/pkg/errors"
	"github.com/yuvalweil/RoomAssignmentSolver/pkg/export"
)

const latestRunCacheKey = "assignments:latest"

type bookingRepository interface {
	List(ctx context.Context) ([]models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type roomRepository interface {
	List(ctx context.Context) ([]models.Room, error)
}

type assignmentRepository interface {
	SaveRun(ctx context.Context, run *models.AssignmentRun, entries []models.Assignment) (string, error)
	LatestRun(ctx context.Context) (*models.AssignmentRun, error)
	ListByRun(ctx context.Context, runID string) ([]models.Assignment, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// AssignmentConfig tunes the assignment service.
type AssignmentConfig struct {
	Budget      solver.Budget
	Rules       solver.Config
	CacheTTL    time.Duration
	ExportTitle string
}

// AssignmentService orchestrates solver runs over the stored inventory:
// loading bookings and rooms, running the search, persisting accepted runs
// and serving diagnostics over the latest one.
type AssignmentService struct {
	bookings bookingRepository
	rooms    roomRepository
	runs     assignmentRepository
	cache    *CacheService
	metrics  *MetricsService
	csv      csvRenderer
	pdf      pdfRenderer
	validate *validator.Validate
	logger   *zap.Logger
	cfg      AssignmentConfig
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(bookings bookingRepository, rooms roomRepository, runs assignmentRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, cfg AssignmentConfig, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ExportTitle == "" {
		cfg.ExportTitle = "Room Assignments"
	}
	return &AssignmentService{
		bookings: bookings,
		rooms:    rooms,
		runs:     runs,
		cache:    cache,
		metrics:  metrics,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		validate: validate,
		logger:   logger,
		cfg:      cfg,
	}
}

// ListBookings returns the stored bookings.
func (s *AssignmentService) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return s.bookings.List(ctx)
}

// ListRooms returns the room pool.
func (s *AssignmentService) ListRooms(ctx context.Context) ([]models.Room, error) {
	return s.rooms.List(ctx)
}

// Solve runs the solver over the stored inventory. When req.Persist is set
// the accepted run is stored and becomes the latest run.
func (s *AssignmentService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve request")
	}
	bookings, rooms, err := s.loadInventory(ctx)
	if err != nil {
		return nil, err
	}

	resp, result, err := s.run(bookings, rooms, s.budgetFor(req.TimeLimitSeconds, req.NodeLimit))
	if err != nil {
		return nil, err
	}

	if req.Persist {
		runID, err := s.persistRun(ctx, result)
		if err != nil {
			return nil, err
		}
		resp.RunID = runID
		if s.cache.Enabled() {
			_ = s.cache.Invalidate(ctx, "assignments:*")
			_ = s.cache.Set(ctx, latestRunCacheKey, resp, s.cfg.CacheTTL)
		}
	}

	s.logger.Info("solve finished",
		zap.Int("assigned", len(resp.Assigned)),
		zap.Int("unassigned", len(resp.Unassigned)),
		zap.Bool("persisted", req.Persist),
	)
	return resp, nil
}

// Preview runs a what-if solve with one booking pinned to (or released
// from) a room. Nothing is persisted.
func (s *AssignmentService) Preview(ctx context.Context, req dto.PreviewRequest) (*dto.SolveResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview request")
	}
	bookings, rooms, err := s.loadInventory(ctx)
	if err != nil {
		return nil, err
	}

	found := false
	scratch := make([]models.Booking, len(bookings))
	copy(scratch, bookings)
	for i := range scratch {
		if scratch[i].ID == req.BookingID {
			scratch[i].ForcedRoom = req.ForcedRoom
			found = true
			break
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("booking %q not found", req.BookingID))
	}

	resp, _, err := s.run(scratch, rooms, s.budgetFor(req.TimeLimitSeconds, req.NodeLimit))
	return resp, err
}

// Validate re-checks a caller-supplied assignment against the hard
// invariants without searching.
func (s *AssignmentService) Validate(ctx context.Context, req dto.ValidateRequest) (*dto.ValidateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validate request")
	}
	bookings, rooms, err := s.loadInventory(ctx)
	if err != nil {
		return nil, err
	}
	violations := solver.Validate(req.Assignment, toSolverBookings(bookings), toSolverRooms(rooms))
	if violations == nil {
		violations = []solver.Violation{}
	}
	return &dto.ValidateResponse{Valid: len(violations) == 0, Violations: violations}, nil
}

// Diagnose itemises the soft penalty of placing a booking into a room,
// against the latest persisted run as context. An empty roomID scores the
// booking's current assignment.
func (s *AssignmentService) Diagnose(ctx context.Context, bookingID, roomID string) (*dto.DiagnosticsResponse, error) {
	bookings, rooms, err := s.loadInventory(ctx)
	if err != nil {
		return nil, err
	}

	assignment, err := s.latestAssignment(ctx)
	if err != nil {
		return nil, err
	}
	if roomID == "" {
		assigned, ok := assignment[bookingID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("booking %q has no room in the latest run", bookingID))
		}
		roomID = assigned
	}

	breakdown, err := solver.Explain(bookingID, roomID, toSolverBookings(bookings), toSolverRooms(rooms), assignment, s.cfg.Rules)
	if err != nil {
		var cfgErr *solver.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, cfgErr.Reason)
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, err.Error())
	}
	return &dto.DiagnosticsResponse{Breakdown: breakdown}, nil
}

// Latest returns the most recent persisted run.
func (s *AssignmentService) Latest(ctx context.Context) (*dto.SolveResponse, error) {
	if s.cache.Enabled() {
		var cached dto.SolveResponse
		if hit, _ := s.cache.Get(ctx, latestRunCacheKey, &cached); hit {
			return &cached, nil
		}
	}

	run, err := s.runs.LatestRun(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no assignment runs yet")
		}
		return nil, err
	}
	entries, err := s.runs.ListByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Booking, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b
	}

	resp := &dto.SolveResponse{
		RunID:      run.ID,
		Assigned:   []dto.AssignmentEntry{},
		Unassigned: []solver.Unassigned{},
		Groups:     []solver.GroupStats{},
	}
	for _, entry := range entries {
		b, ok := byID[entry.BookingID]
		if !ok {
			// booking deleted since the run; surface the placement anyway
			resp.Assigned = append(resp.Assigned, dto.AssignmentEntry{BookingID: entry.BookingID, Room: entry.RoomID})
			continue
		}
		resp.Assigned = append(resp.Assigned, assignmentEntry(b, entry.RoomID))
	}
	if len(run.Meta) > 0 {
		var meta runMeta
		if err := json.Unmarshal(run.Meta, &meta); err == nil {
			if meta.Unassigned != nil {
				resp.Unassigned = meta.Unassigned
			}
			if meta.Groups != nil {
				resp.Groups = meta.Groups
			}
		}
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, latestRunCacheKey, resp, s.cfg.CacheTTL)
	}
	return resp, nil
}

// Export renders the latest run as CSV or PDF and returns the payload with
// a suggested filename.
func (s *AssignmentService) Export(ctx context.Context, format string) ([]byte, string, error) {
	resp, err := s.Latest(ctx)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"Booking ID", "Family", "Room Type", "Room", "Check-In", "Check-Out", "Forced Room"}
	rows := make([]map[string]string, 0, len(resp.Assigned))
	for _, entry := range resp.Assigned {
		rows = append(rows, map[string]string{
			"Booking ID":  entry.BookingID,
			"Family":      entry.Family,
			"Room Type":   entry.RoomType,
			"Room":        entry.Room,
			"Check-In":    entry.CheckIn,
			"Check-Out":   entry.CheckOut,
			"Forced Room": entry.ForcedRoom,
		})
	}
	dataset := export.Dataset{Headers: headers, Rows: rows}

	timestamp := time.Now().UTC().Format("20060102_150405")
	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", err
		}
		return payload, fmt.Sprintf("assignments_%s.csv", timestamp), nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, s.cfg.ExportTitle)
		if err != nil {
			return nil, "", err
		}
		return payload, fmt.Sprintf("assignments_%s.pdf", timestamp), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// runMeta is the non-relational part of a run, kept as JSON on the run row.
type runMeta struct {
	Unassigned []solver.Unassigned `json:"unassigned"`
	Groups     []solver.GroupStats `json:"groups"`
}

type solveResult struct {
	bookings []models.Booking
	result   *solver.Result
}

func (s *AssignmentService) loadInventory(ctx context.Context) ([]models.Booking, []models.Room, error) {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return bookings, rooms, nil
}

func (s *AssignmentService) run(bookings []models.Booking, rooms []models.Room, budget solver.Budget) (*dto.SolveResponse, *solveResult, error) {
	start := time.Now()
	result, err := solver.Solve(toSolverBookings(bookings), toSolverRooms(rooms), s.cfg.Rules, budget)
	if err != nil {
		var cfgErr *solver.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, cfgErr.Reason)
		}
		return nil, nil, err
	}

	nodes := 0
	for _, g := range result.Groups {
		nodes += g.Nodes
	}
	s.metrics.ObserveSolve(time.Since(start), nodes, len(result.Assignment), len(result.Unassigned))

	resp := &dto.SolveResponse{
		Assigned:   []dto.AssignmentEntry{},
		Unassigned: []solver.Unassigned{},
		Groups:     []solver.GroupStats{},
	}
	for _, b := range bookings {
		roomID, ok := result.Assignment[b.ID]
		if !ok {
			continue
		}
		resp.Assigned = append(resp.Assigned, assignmentEntry(b, roomID))
	}
	if result.Unassigned != nil {
		resp.Unassigned = result.Unassigned
	}
	if result.Groups != nil {
		resp.Groups = result.Groups
	}
	return resp, &solveResult{bookings: bookings, result: result}, nil
}

func (s *AssignmentService) persistRun(ctx context.Context, sr *solveResult) (string, error) {
	meta, err := json.Marshal(runMeta{Unassigned: sr.result.Unassigned, Groups: sr.result.Groups})
	if err != nil {
		return "", fmt.Errorf("marshal run meta: %w", err)
	}
	run := &models.AssignmentRun{
		AssignedCount:   len(sr.result.Assignment),
		UnassignedCount: len(sr.result.Unassigned),
		Complete:        len(sr.result.Unassigned) == 0,
		Meta:            types.JSONText(meta),
	}
	entries := make([]models.Assignment, 0, len(sr.result.Assignment))
	for _, b := range sr.bookings {
		roomID, ok := sr.result.Assignment[b.ID]
		if !ok {
			continue
		}
		entries = append(entries, models.Assignment{BookingID: b.ID, RoomID: roomID})
	}
	return s.runs.SaveRun(ctx, run, entries)
}

func (s *AssignmentService) latestAssignment(ctx context.Context) (map[string]string, error) {
	assignment := make(map[string]string)
	run, err := s.runs.LatestRun(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assignment, nil
		}
		return nil, err
	}
	entries, err := s.runs.ListByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		assignment[entry.BookingID] = entry.RoomID
	}
	return assignment, nil
}

func (s *AssignmentService) budgetFor(timeLimitSeconds float64, nodeLimit int) solver.Budget {
	budget := s.cfg.Budget
	if timeLimitSeconds > 0 {
		budget.TimeLimit = time.Duration(timeLimitSeconds * float64(time.Second))
	}
	if nodeLimit > 0 {
		budget.NodeLimit = nodeLimit
	}
	return budget
}

func assignmentEntry(b models.Booking, roomID string) dto.AssignmentEntry {
	return dto.AssignmentEntry{
		BookingID:  b.ID,
		Family:     b.Family,
		RoomType:   b.RoomType,
		Room:       roomID,
		CheckIn:    b.CheckIn.Format(dto.DateFormat),
		CheckOut:   b.CheckOut.Format(dto.DateFormat),
		ForcedRoom: b.ForcedRoom,
	}
}

func toSolverBookings(bookings []models.Booking) []solver.Booking {
	out := make([]solver.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, solver.Booking{
			ID:         b.ID,
			Family:     b.Family,
			RoomType:   b.RoomType,
			Stay:       solver.Interval{Start: b.CheckIn, End: b.CheckOut},
			ForcedRoom: b.ForcedRoom,
		})
	}
	return out
}

func toSolverRooms(rooms []models.Room) []solver.Room {
	out := make([]solver.Room, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, solver.Room{ID: r.ID, RoomType: r.RoomType})
	}
	return out
}
