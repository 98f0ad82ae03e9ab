package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
)

const scheduleColumns = "id, room_id, requester_id, approver_id, template_id, is_priority, subject, program_year_section, instructor, status, type, start_time, end_time, remarks, created_at, updated_at"

// ScheduleRepository provides persistence for schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func statusPlaceholders(statuses []models.ScheduleStatus, args *[]interface{}) string {
	placeholders := make([]string, len(statuses))
	for i, status := range statuses {
		*args = append(*args, string(status))
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(placeholders, ", ")
}

// HasOverlap reports whether any schedule of the room in one of the
// given statuses intersects [start, end). Intervals are half-open:
// touching edges do not overlap. Schedules listed in excludeIDs are
// ignored, which is how edits and template overrides avoid colliding
// with themselves.
func (r *ScheduleRepository) HasOverlap(ctx context.Context, roomID string, start, end time.Time, statuses []models.ScheduleStatus, excludeIDs []string) (bool, error) {
	if len(statuses) == 0 {
		statuses = models.LiveStatuses
	}

	args := []interface{}{roomID}
	query := "SELECT EXISTS (SELECT 1 FROM schedules WHERE room_id = $1 AND status IN (" + statusPlaceholders(statuses, &args) + ")"

	args = append(args, end)
	query += fmt.Sprintf(" AND start_time < $%d", len(args))
	args = append(args, start)
	query += fmt.Sprintf(" AND end_time > $%d", len(args))

	for _, id := range excludeIDs {
		args = append(args, id)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += ")"

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check schedule overlap: %w", err)
	}
	return exists, nil
}

// ListOverlappingRange fetches every schedule of the room in the given
// statuses that intersects [minStart, maxEnd). Used by batch conflict
// detection: one bounded-range query, then filtering in memory.
func (r *ScheduleRepository) ListOverlappingRange(ctx context.Context, roomID string, statuses []models.ScheduleStatus, minStart, maxEnd time.Time) ([]models.ScheduleConflict, error) {
	if len(statuses) == 0 {
		statuses = models.LiveStatuses
	}

	args := []interface{}{roomID}
	query := "SELECT id AS schedule_id, start_time, end_time, subject, program_year_section, instructor FROM schedules WHERE room_id = $1 AND status IN (" + statusPlaceholders(statuses, &args) + ")"

	args = append(args, maxEnd)
	query += fmt.Sprintf(" AND start_time < $%d", len(args))
	args = append(args, minStart)
	query += fmt.Sprintf(" AND end_time > $%d ORDER BY start_time ASC", len(args))

	var conflicts []models.ScheduleConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping schedules: %w", err)
	}
	return conflicts, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status IN ("+statusPlaceholders(filter.Statuses, &args)+")")
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("end_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_time": true,
		"end_time":   true,
		"status":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_time"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", scheduleColumns, base, sortBy, order, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// ListPendingForSlot returns pending requests that match the exact room
// and time window, surfaced to admins reviewing a slot.
func (r *ScheduleRepository) ListPendingForSlot(ctx context.Context, roomID string, start, end time.Time) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE status = $1 AND room_id = $2 AND start_time = $3 AND end_time = $4 ORDER BY created_at ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, string(models.StatusPending), roomID, start, end); err != nil {
		return nil, fmt.Errorf("list pending for slot: %w", err)
	}
	return schedules, nil
}

// ListCalendar returns every approved schedule plus, when requesterID is
// set, that requester's own pending requests.
func (r *ScheduleRepository) ListCalendar(ctx context.Context, roomID, requesterID string) ([]models.Schedule, error) {
	args := []interface{}{string(models.StatusApproved)}
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE (status = $1", scheduleColumns)
	if requesterID != "" {
		args = append(args, string(models.StatusPending))
		query += fmt.Sprintf(" OR (status = $%d", len(args))
		args = append(args, requesterID)
		query += fmt.Sprintf(" AND requester_id = $%d)", len(args))
	}
	query += ")"
	if roomID != "" {
		args = append(args, roomID)
		query += fmt.Sprintf(" AND room_id = $%d", len(args))
	}
	query += " ORDER BY start_time ASC"

	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list calendar schedules: %w", err)
	}
	return schedules, nil
}

// HasOverrideForRequester reports whether the requester already has a
// pending or approved override for the template.
func (r *ScheduleRepository) HasOverrideForRequester(ctx context.Context, templateID, requesterID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedules WHERE template_id = $1 AND requester_id = $2 AND status IN ($3, $4))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, templateID, requesterID, string(models.StatusPending), string(models.StatusApproved)); err != nil {
		return false, fmt.Errorf("check override for requester: %w", err)
	}
	return exists, nil
}

// FindOverrideInWindow returns the earliest live override of the
// template intersecting [start, end), or sql.ErrNoRows when the window
// is clear.
func (r *ScheduleRepository) FindOverrideInWindow(ctx context.Context, templateID string, start, end time.Time) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE template_id = $1 AND status IN ($2, $3) AND start_time < $4 AND end_time > $5 ORDER BY start_time ASC LIMIT 1`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, templateID, string(models.StatusPending), string(models.StatusApproved), end, start); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find override in window: %w", err)
	}
	return &schedule, nil
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	prepareInsert(schedule)

	const query = `INSERT INTO schedules (id, room_id, requester_id, approver_id, template_id, is_priority, subject, program_year_section, instructor, status, type, start_time, end_time, remarks, created_at, updated_at) VALUES (:id, :room_id, :requester_id, :approver_id, :template_id, :is_priority, :subject, :program_year_section, :instructor, :status, :type, :start_time, :end_time, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// BulkCreate inserts schedules within a single transaction. Callers pass
// occurrences in chronological order; either every row commits or none.
func (r *ScheduleRepository) BulkCreate(ctx context.Context, schedules []models.Schedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create schedules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO schedules (id, room_id, requester_id, approver_id, template_id, is_priority, subject, program_year_section, instructor, status, type, start_time, end_time, remarks, created_at, updated_at) VALUES (:id, :room_id, :requester_id, :approver_id, :template_id, :is_priority, :subject, :program_year_section, :instructor, :status, :type, :start_time, :end_time, :remarks, :created_at, :updated_at)`
	for i := range schedules {
		prepareInsert(&schedules[i])
		if _, err = tx.NamedExecContext(ctx, query, &schedules[i]); err != nil {
			return fmt.Errorf("bulk insert schedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create schedules: %w", err)
	}
	return nil
}

// UpdateStatus moves a schedule to the given status. Transition guards
// live in the service layer; this only touches storage.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	const query = `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	return requireRowAffected(res, "update schedule status")
}

// UpdateDecision records an approve/reject outcome: final room, approver
// and remarks in one statement.
func (r *ScheduleRepository) UpdateDecision(ctx context.Context, id string, status models.ScheduleStatus, roomID *string, approverID string, remarks *string) error {
	const query = `UPDATE schedules SET status = $1, room_id = COALESCE($2, room_id), approver_id = $3, remarks = $4, updated_at = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, string(status), roomID, approverID, remarks, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update schedule decision: %w", err)
	}
	return requireRowAffected(res, "update schedule decision")
}

// Search applies the compiled free-text search. Every word must match at
// least one searchable column (AND across words, OR across fields); the
// optional time constraint is an overlap test against start/end.
func (r *ScheduleRepository) Search(ctx context.Context, search models.ScheduleSearch) ([]models.ScheduleSearchResult, error) {
	query := `SELECT s.id, s.room_id, s.requester_id, s.approver_id, s.template_id, s.is_priority, s.subject, s.program_year_section, s.instructor, s.status, s.type, s.start_time, s.end_time, s.remarks, s.created_at, s.updated_at, r.room_number AS room_number, req.full_name AS requester_name, app.full_name AS approver_name
FROM schedules s
LEFT JOIN rooms r ON r.id = s.room_id
LEFT JOIN users req ON req.id = s.requester_id
LEFT JOIN users app ON app.id = s.approver_id
WHERE 1=1`

	var args []interface{}
	for _, word := range search.Words {
		args = append(args, "%"+strings.ToLower(word)+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (LOWER(s.subject) LIKE $%d OR LOWER(COALESCE(s.program_year_section, '')) LIKE $%d OR LOWER(COALESCE(s.instructor, '')) LIKE $%d OR LOWER(COALESCE(s.remarks, '')) LIKE $%d OR LOWER(s.status) LIKE $%d OR LOWER(COALESCE(r.room_number, '')) LIKE $%d OR LOWER(COALESCE(req.full_name, '')) LIKE $%d OR LOWER(COALESCE(app.full_name, '')) LIKE $%d)`, n, n, n, n, n, n, n, n)
	}

	switch {
	case search.Instant != nil:
		args = append(args, *search.Instant)
		query += fmt.Sprintf(" AND s.start_time <= $%d", len(args))
		args = append(args, *search.Instant)
		query += fmt.Sprintf(" AND s.end_time > $%d", len(args))
	case search.RangeStart != nil && search.RangeEnd != nil:
		args = append(args, *search.RangeEnd)
		query += fmt.Sprintf(" AND s.start_time < $%d", len(args))
		args = append(args, *search.RangeStart)
		query += fmt.Sprintf(" AND s.end_time > $%d", len(args))
	}

	limit := search.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY s.start_time DESC LIMIT %d", limit)

	var results []models.ScheduleSearchResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("search schedules: %w", err)
	}
	return results, nil
}

func prepareInsert(schedule *models.Schedule) {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
}

func requireRowAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
