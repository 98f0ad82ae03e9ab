package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/middleware"
	"github.com/noah-isme/classroom-reservation-api/internal/models"
	"github.com/noah-isme/classroom-reservation-api/internal/service"
)

type fakeScheduleRepo struct {
	schedules map[string]models.Schedule
	overlap   bool
	created   *models.Schedule
	statuses  map[string]models.ScheduleStatus
}

func (f *fakeScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var list []models.Schedule
	for _, s := range f.schedules {
		list = append(list, s)
	}
	return list, len(list), nil
}

func (f *fakeScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s, ok := f.schedules[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeScheduleRepo) HasOverlap(ctx context.Context, roomID string, start, end time.Time, statuses []models.ScheduleStatus, excludeIDs []string) (bool, error) {
	return f.overlap, nil
}

func (f *fakeScheduleRepo) ListOverlappingRange(ctx context.Context, roomID string, statuses []models.ScheduleStatus, minStart, maxEnd time.Time) ([]models.ScheduleConflict, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListPendingForSlot(ctx context.Context, roomID string, start, end time.Time) ([]models.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) HasOverrideForRequester(ctx context.Context, templateID, requesterID string) (bool, error) {
	return false, nil
}

func (f *fakeScheduleRepo) FindOverrideInWindow(ctx context.Context, templateID string, start, end time.Time) (*models.Schedule, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	if f.schedules == nil {
		f.schedules = make(map[string]models.Schedule)
	}
	if schedule.ID == "" {
		schedule.ID = "new-schedule"
	}
	f.schedules[schedule.ID] = *schedule
	f.created = schedule
	return nil
}

func (f *fakeScheduleRepo) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	if f.statuses == nil {
		f.statuses = make(map[string]models.ScheduleStatus)
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeScheduleRepo) UpdateDecision(ctx context.Context, id string, status models.ScheduleStatus, roomID *string, approverID string, remarks *string) error {
	if f.statuses == nil {
		f.statuses = make(map[string]models.ScheduleStatus)
	}
	f.statuses[id] = status
	return nil
}

type fakeRoomRepo struct{}

func (f *fakeRoomRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	return &models.Room{ID: id, RoomNumber: "101"}, nil
}

type fakeSearchRepo struct {
	results []models.ScheduleSearchResult
}

func (f *fakeSearchRepo) Search(ctx context.Context, search models.ScheduleSearch) ([]models.ScheduleSearchResult, error) {
	return f.results, nil
}

func ptr(s string) *string { return &s }

func newTestScheduleHandler(repo *fakeScheduleRepo) *ScheduleHandler {
	scheduleSvc := service.NewScheduleService(repo, &fakeRoomRepo{}, nil, nil, validator.New(), zap.NewNop())
	searchSvc := service.NewSearchService(&fakeSearchRepo{results: []models.ScheduleSearchResult{{}}}, zap.NewNop())
	return NewScheduleHandler(scheduleSvc, nil, searchSvc)
}

func TestScheduleHandlerCreateRequestUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestScheduleHandler(&fakeScheduleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedules/requests", bytes.NewBufferString("{}"))

	handler.CreateRequest(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScheduleHandlerCreateRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeScheduleRepo{}
	handler := newTestScheduleHandler(repo)

	payload, err := json.Marshal(service.CreateScheduleRequest{
		RoomID:    ptr("r1"),
		Subject:   "Physics 101",
		StartTime: time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 2, 17, 19, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedules/requests", bytes.NewBuffer(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleFaculty})

	handler.CreateRequest(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.StatusPending, repo.created.Status)
}

func TestScheduleHandlerCreateRequestConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestScheduleHandler(&fakeScheduleRepo{overlap: true})

	payload, err := json.Marshal(service.CreateScheduleRequest{
		RoomID:    ptr("r1"),
		Subject:   "Physics 101",
		StartTime: time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 2, 17, 19, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedules/requests", bytes.NewBuffer(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleFaculty})

	handler.CreateRequest(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScheduleHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestScheduleHandler(&fakeScheduleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedules/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleHandlerSearchMissingQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestScheduleHandler(&fakeScheduleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedules/search", nil)

	handler.Search(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandlerSearch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestScheduleHandler(&fakeScheduleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedules/search?q=Garcia", nil)

	handler.Search(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
