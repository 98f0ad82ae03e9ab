package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
	"github.com/noah-isme/classroom-reservation-api/pkg/storage"
)

type mockCalendarRepo struct {
	schedules []models.Schedule
	calls     int
}

func (m *mockCalendarRepo) ListCalendar(ctx context.Context, roomID, requesterID string) ([]models.Schedule, error) {
	m.calls++
	return m.schedules, nil
}

func (m *mockCalendarRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	return m.schedules, len(m.schedules), nil
}

type mockUserRepo struct{}

func (m *mockUserRepo) FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	for _, id := range ids {
		users[id] = models.User{ID: id, FullName: "User " + id}
	}
	return users, nil
}

type memoryCache struct {
	values  map[string][]byte
	deletes int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes++
	return nil
}

func TestCalendarServiceSuppressesOverriddenTemplates(t *testing.T) {
	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	repo := &mockCalendarRepo{schedules: []models.Schedule{
		{ID: "tmpl", RoomID: strPtr("r1"), Subject: "Physics 101", Status: models.StatusApproved, Type: models.TypeTemplate, StartTime: start, EndTime: start.Add(time.Hour)},
		{ID: "override", RoomID: strPtr("r1"), Subject: "Thesis Defense", Status: models.StatusApproved, Type: models.TypeRequest, TemplateID: strPtr("tmpl"), StartTime: start, EndTime: start.Add(time.Hour)},
		{ID: "other", RoomID: strPtr("r2"), Subject: "Chemistry", Status: models.StatusApproved, Type: models.TypeTemplate, StartTime: start, EndTime: start.Add(time.Hour)},
	}}
	svc := NewCalendarService(repo, &mockRoomFinder{}, &mockUserRepo{}, nil, nil, nil, time.Minute, zap.NewNop())

	events, err := svc.Events(context.Background(), "", "")

	require.NoError(t, err)
	require.Len(t, events, 2)
	ids := []string{events[0].ID, events[1].ID}
	assert.Contains(t, ids, "override")
	assert.Contains(t, ids, "other")
	assert.NotContains(t, ids, "tmpl")
}

func TestCalendarServicePendingTemplateDoesNotSuppress(t *testing.T) {
	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	repo := &mockCalendarRepo{schedules: []models.Schedule{
		{ID: "tmpl", RoomID: strPtr("r1"), Subject: "Physics 101", Status: models.StatusApproved, Type: models.TypeTemplate, StartTime: start, EndTime: start.Add(time.Hour)},
		{ID: "override", RoomID: strPtr("r1"), Subject: "Thesis Defense", Status: models.StatusPending, Type: models.TypeRequest, TemplateID: strPtr("tmpl"), StartTime: start, EndTime: start.Add(time.Hour)},
	}}
	svc := NewCalendarService(repo, &mockRoomFinder{}, &mockUserRepo{}, nil, nil, nil, time.Minute, zap.NewNop())

	events, err := svc.Events(context.Background(), "", "u1")

	require.NoError(t, err)
	// A pending override hides nothing; both stay visible.
	require.Len(t, events, 2)
	for _, event := range events {
		if event.ID == "override" {
			assert.True(t, event.Pending)
		}
	}
}

func TestCalendarServiceEventTitles(t *testing.T) {
	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	section := "BSCS 3-A"
	instructor := "Juan Dela Cruz"
	repo := &mockCalendarRepo{schedules: []models.Schedule{
		{ID: "s1", RoomID: strPtr("r1"), Subject: "Operating Systems", ProgramYearSection: &section, Instructor: &instructor, Status: models.StatusApproved, StartTime: start, EndTime: start.Add(time.Hour)},
	}}
	svc := NewCalendarService(repo, &mockRoomFinder{}, &mockUserRepo{}, nil, nil, nil, time.Minute, zap.NewNop())

	events, err := svc.Events(context.Background(), "", "")

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Operating Systems (BSCS 3-A) - J.D. Cruz", events[0].Title)
	assert.Equal(t, "r1", events[0].ResourceID)
	assert.NotEmpty(t, events[0].Color)
}

func TestCalendarServiceInvalidate(t *testing.T) {
	cache := &memoryCache{}
	svc := NewCalendarService(&mockCalendarRepo{}, &mockRoomFinder{}, &mockUserRepo{}, cache, nil, nil, time.Minute, zap.NewNop())

	require.NoError(t, svc.InvalidateCalendar(context.Background()))
	assert.Equal(t, 1, cache.deletes)
}

func TestCalendarServiceExportCSV(t *testing.T) {
	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	repo := &mockCalendarRepo{schedules: []models.Schedule{
		{ID: "s1", RoomID: strPtr("r1"), RequesterID: strPtr("u1"), Subject: "Physics 101", Status: models.StatusApproved, StartTime: start, EndTime: start.Add(time.Hour)},
	}}
	svc := NewCalendarService(repo, &mockRoomFinder{}, &mockUserRepo{}, nil, nil, nil, time.Minute, zap.NewNop())

	artifact, err := svc.Export(context.Background(), models.ScheduleFilter{}, "csv")

	require.NoError(t, err)
	assert.Equal(t, "text/csv", artifact.ContentType)
	assert.Contains(t, string(artifact.Data), "Physics 101")
	assert.Contains(t, string(artifact.Data), "User u1")
	assert.Empty(t, artifact.DownloadToken)
}

func TestCalendarServiceExportUnknownFormat(t *testing.T) {
	svc := NewCalendarService(&mockCalendarRepo{}, &mockRoomFinder{}, &mockUserRepo{}, nil, nil, nil, time.Minute, zap.NewNop())

	_, err := svc.Export(context.Background(), models.ScheduleFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

type memoryExportStore struct {
	files map[string][]byte
}

func (m *memoryExportStore) Save(filename string, data []byte) (string, error) {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[filename] = data
	return filename, nil
}

func (m *memoryExportStore) Open(filename string) (io.ReadCloser, error) {
	data, ok := m.files[filename]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestCalendarServiceExportPersistAndDownload(t *testing.T) {
	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	repo := &mockCalendarRepo{schedules: []models.Schedule{
		{ID: "s1", RoomID: strPtr("r1"), RequesterID: strPtr("u1"), Subject: "Physics 101", Status: models.StatusApproved, StartTime: start, EndTime: start.Add(time.Hour)},
	}}
	store := &memoryExportStore{}
	signer := storage.NewSigner("test_secret", time.Hour)
	svc := NewCalendarService(repo, &mockRoomFinder{}, &mockUserRepo{}, nil, store, signer, time.Minute, zap.NewNop())

	artifact, err := svc.Export(context.Background(), models.ScheduleFilter{}, "csv")

	require.NoError(t, err)
	require.NotEmpty(t, artifact.DownloadToken)
	assert.True(t, artifact.ExpiresAt.After(time.Now()))

	reader, filename, err := svc.Download(context.Background(), artifact.DownloadToken)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, artifact.Filename, filename)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Physics 101")
}

func TestCalendarServiceDownloadDisabled(t *testing.T) {
	svc := NewCalendarService(&mockCalendarRepo{}, &mockRoomFinder{}, &mockUserRepo{}, nil, nil, nil, time.Minute, zap.NewNop())

	_, _, err := svc.Download(context.Background(), "whatever")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceDownloadBadToken(t *testing.T) {
	store := &memoryExportStore{}
	signer := storage.NewSigner("test_secret", time.Hour)
	svc := NewCalendarService(&mockCalendarRepo{}, &mockRoomFinder{}, &mockUserRepo{}, nil, store, signer, time.Minute, zap.NewNop())

	_, _, err := svc.Download(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
