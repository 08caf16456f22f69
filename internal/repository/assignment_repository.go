package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yuvalweil/RoomAssignmentSolver/internal/models"
)

// AssignmentRepository persists solver runs and their placements.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// SaveRun stores a run header and its placements in one transaction and
// returns the generated run ID.
func (r *AssignmentRepository) SaveRun(ctx context.Context, run *models.AssignmentRun, entries []models.Assignment) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.RequestedAt.IsZero() {
		run.RequestedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	const runQuery = `INSERT INTO assignment_runs (id, requested_at, assigned_count, unassigned_count, complete, meta)
		VALUES (:id, :requested_at, :assigned_count, :unassigned_count, :complete, :meta)`
	if _, err := tx.NamedExecContext(ctx, runQuery, run); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	const entryQuery = `INSERT INTO assignments (id, run_id, booking_id, room_id, created_at)
		VALUES (:id, :run_id, :booking_id, :room_id, :created_at)`
	now := time.Now().UTC()
	for i := range entries {
		entries[i].RunID = run.ID
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, entryQuery, entries[i]); err != nil {
			return "", fmt.Errorf("insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save run: %w", err)
	}
	return run.ID, nil
}

// LatestRun returns the most recent run header, or sql.ErrNoRows.
func (r *AssignmentRepository) LatestRun(ctx context.Context) (*models.AssignmentRun, error) {
	const query = `SELECT id, requested_at, assigned_count, unassigned_count, complete, meta
		FROM assignment_runs ORDER BY requested_at DESC, id DESC LIMIT 1`
	var run models.AssignmentRun
	if err := r.db.GetContext(ctx, &run, query); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListByRun returns a run's placements in booking order.
func (r *AssignmentRepository) ListByRun(ctx context.Context, runID string) ([]models.Assignment, error) {
	const query = `SELECT id, run_id, booking_id, room_id, created_at FROM assignments WHERE run_id = $1 ORDER BY booking_id`
	var entries []models.Assignment
	if err := r.db.SelectContext(ctx, &entries, query, runID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return entries, nil
}
