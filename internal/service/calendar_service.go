package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
	"github.com/noah-isme/classroom-reservation-api/pkg/export"
	"github.com/noah-isme/classroom-reservation-api/pkg/storage"
)

type calendarScheduleRepository interface {
	ListCalendar(ctx context.Context, roomID, requesterID string) ([]models.Schedule, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
}

type calendarCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type roomLister interface {
	List(ctx context.Context, activeOnly bool) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type calendarUserRepository interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type exportStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (io.ReadCloser, error)
}

const calendarCachePrefix = "calendar:"

// eventPalette supplies deterministic colors per subject so the same
// class looks the same across the whole calendar.
var eventPalette = []string{
	"#2563eb", "#16a34a", "#d97706", "#dc2626",
	"#7c3aed", "#0891b2", "#be185d", "#4d7c0f",
}

const pendingEventColor = "#9ca3af"

// CalendarService assembles calendar feeds and tabular exports.
type CalendarService struct {
	schedules calendarScheduleRepository
	rooms     roomLister
	users     calendarUserRepository
	cache     calendarCache
	store     exportStore
	signer    *storage.Signer
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(schedules calendarScheduleRepository, rooms roomLister, users calendarUserRepository, cache calendarCache, store exportStore, signer *storage.Signer, cacheTTL time.Duration, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CalendarService{
		schedules: schedules,
		rooms:     rooms,
		users:     users,
		cache:     cache,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Events returns the calendar feed: every approved schedule plus the
// viewer's own pending requests. Recurring template slots claimed by an
// approved override are hidden for that window so the calendar never
// shows two bookings in one slot.
func (s *CalendarService) Events(ctx context.Context, roomID, viewerID string) ([]models.CalendarEvent, error) {
	cacheKey := fmt.Sprintf("%sroom=%s:viewer=%s", calendarCachePrefix, roomID, viewerID)
	if s.cache != nil {
		var cached []models.CalendarEvent
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	schedules, err := s.schedules.ListCalendar(ctx, roomID, viewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}

	events := buildEvents(schedules)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, events, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache calendar events", zap.Error(err))
		}
	}
	return events, nil
}

// InvalidateCalendar drops every cached calendar variant. Called on any
// schedule state change.
func (s *CalendarService) InvalidateCalendar(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, calendarCachePrefix+"*")
}

// ExportArtifact is a rendered export plus, when an artifact store is
// configured, a signed token for fetching it again later.
type ExportArtifact struct {
	Filename      string
	ContentType   string
	Data          []byte
	DownloadToken string
	ExpiresAt     time.Time
}

// Export renders filtered schedules as CSV or PDF, persists the
// artifact, and signs a download link for it.
func (s *CalendarService) Export(ctx context.Context, filter models.ScheduleFilter, format string) (*ExportArtifact, error) {
	filter.Page = 1
	filter.PageSize = 100
	filter.SortBy = "start_time"
	filter.SortOrder = "ASC"

	var all []models.Schedule
	for {
		page, total, err := s.schedules.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules for export")
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			break
		}
		filter.Page++
	}

	dataset, err := s.buildDataset(ctx, all)
	if err != nil {
		return nil, err
	}

	artifact := &ExportArtifact{}
	switch format {
	case "csv", "":
		artifact.Data, err = s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		artifact.ContentType = "text/csv"
		artifact.Filename = exportFilename("csv")
	case "pdf":
		artifact.Data, err = s.pdf.Render(dataset, "Room Reservations")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		artifact.ContentType = "application/pdf"
		artifact.Filename = exportFilename("pdf")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format)
	}

	// Persistence failures are logged, not fatal; the caller still gets
	// the rendered bytes, just without a re-download link.
	if s.store != nil && s.signer != nil {
		if _, err := s.store.Save(artifact.Filename, artifact.Data); err != nil {
			s.logger.Warn("failed to persist export artifact", zap.String("file", artifact.Filename), zap.Error(err))
			return artifact, nil
		}
		token, expiresAt, err := s.signer.Generate(artifact.Filename)
		if err != nil {
			s.logger.Warn("failed to sign export download link", zap.String("file", artifact.Filename), zap.Error(err))
			return artifact, nil
		}
		artifact.DownloadToken = token
		artifact.ExpiresAt = expiresAt
	}
	return artifact, nil
}

// Download resolves a signed token to a stored export artifact.
func (s *CalendarService) Download(ctx context.Context, token string) (io.ReadCloser, string, error) {
	if s.store == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export downloads are not enabled")
	}
	filename, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.store.Open(filename)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export artifact no longer available")
	}
	return file, filename, nil
}

func exportFilename(ext string) string {
	return fmt.Sprintf("schedules-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
}

func (s *CalendarService) buildDataset(ctx context.Context, schedules []models.Schedule) (export.Dataset, error) {
	roomNumbers := make(map[string]string)
	if rooms, err := s.rooms.List(ctx, false); err == nil {
		for _, room := range rooms {
			roomNumbers[room.ID] = room.RoomNumber
		}
	}

	userIDs := make([]string, 0, len(schedules))
	seen := make(map[string]bool)
	for _, sched := range schedules {
		for _, id := range []*string{sched.RequesterID, sched.ApproverID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				userIDs = append(userIDs, *id)
			}
		}
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load users for export")
	}

	headers := []string{"Room", "Subject", "Section", "Instructor", "Start", "End", "Status", "Requester", "Approver"}
	rows := make([]map[string]string, 0, len(schedules))
	for _, sched := range schedules {
		row := map[string]string{
			"Subject": sched.Subject,
			"Start":   sched.StartTime.Format("2006-01-02 15:04"),
			"End":     sched.EndTime.Format("2006-01-02 15:04"),
			"Status":  string(sched.Status),
		}
		if sched.RoomID != nil {
			row["Room"] = roomNumbers[*sched.RoomID]
		}
		if sched.ProgramYearSection != nil {
			row["Section"] = *sched.ProgramYearSection
		}
		if sched.Instructor != nil {
			row["Instructor"] = *sched.Instructor
		}
		if sched.RequesterID != nil {
			row["Requester"] = users[*sched.RequesterID].FullName
		}
		if sched.ApproverID != nil {
			row["Approver"] = users[*sched.ApproverID].FullName
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

// buildEvents maps schedules to calendar events, suppressing template
// rows claimed by an approved override.
func buildEvents(schedules []models.Schedule) []models.CalendarEvent {
	suppressed := make(map[string]bool)
	for _, sched := range schedules {
		if sched.TemplateID != nil && sched.Status == models.StatusApproved {
			suppressed[*sched.TemplateID] = true
		}
	}

	events := make([]models.CalendarEvent, 0, len(schedules))
	for _, sched := range schedules {
		if sched.Type == models.TypeTemplate && suppressed[sched.ID] {
			continue
		}
		event := models.CalendarEvent{
			ID:       sched.ID,
			Title:    sched.EventTitle(),
			Start:    sched.StartTime,
			End:      sched.EndTime,
			Color:    subjectColor(sched.Subject),
			Pending:  sched.Status == models.StatusPending,
			Template: sched.Type == models.TypeTemplate,
		}
		if sched.RoomID != nil {
			event.ResourceID = *sched.RoomID
		}
		if event.Pending {
			event.Color = pendingEventColor
		}
		events = append(events, event)
	}
	return events
}

func subjectColor(subject string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subject))
	return eventPalette[h.Sum32()%uint32(len(eventPalette))]
}
