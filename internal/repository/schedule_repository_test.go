package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestScheduleRepositoryHasOverlap(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schedules WHERE room_id = $1 AND status IN ($2, $3) AND start_time < $4 AND end_time > $5)")).
		WithArgs("r1", "PENDING", "APPROVED", end, start).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasOverlap(context.Background(), "r1", start, end, models.LiveStatuses, nil)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryHasOverlapExcludesIDs(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("AND id <> $6")).
		WithArgs("r1", "PENDING", "APPROVED", end, start, "tmpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.HasOverlap(context.Background(), "r1", start, end, models.LiveStatuses, []string{"tmpl-1"})
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListOverlappingRange(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	minStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	maxEnd := time.Date(2024, 1, 14, 10, 0, 0, 0, time.UTC)
	busyStart := time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"schedule_id", "start_time", "end_time", "subject", "program_year_section", "instructor"}).
		AddRow("busy", busyStart, busyStart.Add(time.Hour), "Chemistry", sql.NullString{}, sql.NullString{})

	mock.ExpectQuery(regexp.QuoteMeta("AND start_time < $4 AND end_time > $5 ORDER BY start_time ASC")).
		WithArgs("r1", "PENDING", "APPROVED", maxEnd, minStart).
		WillReturnRows(rows)

	conflicts, err := repo.ListOverlappingRange(context.Background(), "r1", models.LiveStatuses, minStart, maxEnd)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "busy", conflicts[0].ScheduleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	roomID := "r1"
	schedule := &models.Schedule{
		RoomID:    &roomID,
		Subject:   "Physics 101",
		Status:    models.StatusPending,
		Type:      models.TypeRequest,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}

	require.NoError(t, repo.Create(context.Background(), schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.False(t, schedule.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryBulkCreateRollsBack(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	roomID := "r1"
	schedules := []models.Schedule{
		{RoomID: &roomID, Subject: "A", Status: models.StatusApproved, Type: models.TypeTemplate, StartTime: start, EndTime: start.Add(time.Hour)},
		{RoomID: &roomID, Subject: "B", Status: models.StatusApproved, Type: models.TypeTemplate, StartTime: start.AddDate(0, 0, 7), EndTime: start.AddDate(0, 0, 7).Add(time.Hour)},
	}

	err := repo.BulkCreate(context.Background(), schedules)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryBulkCreateCommits(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	roomID := "r1"
	schedules := []models.Schedule{
		{RoomID: &roomID, Subject: "A", Status: models.StatusApproved, Type: models.TypeTemplate, StartTime: start, EndTime: start.Add(time.Hour)},
		{RoomID: &roomID, Subject: "B", Status: models.StatusApproved, Type: models.TypeTemplate, StartTime: start.AddDate(0, 0, 7), EndTime: start.AddDate(0, 0, 7).Add(time.Hour)},
	}

	require.NoError(t, repo.BulkCreate(context.Background(), schedules))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.StatusCancelled)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindOverrideInWindow(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"id", "subject", "status", "type", "start_time", "end_time"}).
		AddRow("ovr-1", "Faculty Meeting", "APPROVED", "OVERRIDE", start, end)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE template_id = $1 AND status IN ($2, $3) AND start_time < $4 AND end_time > $5 ORDER BY start_time ASC LIMIT 1")).
		WithArgs("tmpl-1", "PENDING", "APPROVED", end, start).
		WillReturnRows(rows)

	blocking, err := repo.FindOverrideInWindow(context.Background(), "tmpl-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, "ovr-1", blocking.ID)
	assert.Equal(t, "Faculty Meeting", blocking.Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindOverrideInWindowClear(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE template_id = $1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindOverrideInWindow(context.Background(), "tmpl-1", start, start.Add(time.Hour))
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositorySearch(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "subject", "status", "type", "start_time", "end_time", "is_priority", "created_at", "updated_at", "room_number", "requester_name", "approver_name"}).
		AddRow("s1", "Physics 101", "APPROVED", "REQUEST", start, start.Add(time.Hour), false, start, start,
			sql.NullString{String: "101", Valid: true}, sql.NullString{String: "Juan Garcia", Valid: true}, sql.NullString{})

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(s.subject) LIKE $1")).
		WithArgs("%garcia%").
		WillReturnRows(rows)

	results, err := repo.Search(context.Background(), models.ScheduleSearch{Words: []string{"Garcia"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].ID)
	require.NotNil(t, results[0].RoomNumber)
	assert.Equal(t, "101", *results[0].RoomNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositorySearchRangeIsHalfOpen(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rangeStart := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.AddDate(0, 0, 1)

	// A schedule ending exactly at rangeStart or starting exactly at
	// rangeEnd only touches the boundary and must not match.
	mock.ExpectQuery(regexp.QuoteMeta("AND s.start_time < $1 AND s.end_time > $2")).
		WithArgs(rangeEnd, rangeStart).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	results, err := repo.Search(context.Background(), models.ScheduleSearch{RangeStart: &rangeStart, RangeEnd: &rangeEnd})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}
