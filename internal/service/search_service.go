package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
)

type searchRepository interface {
	Search(ctx context.Context, search models.ScheduleSearch) ([]models.ScheduleSearchResult, error)
}

// dateGranularity records how precise a parsed date phrase was, which
// decides whether the constraint is a point in time, a day, or a month.
type dateGranularity int

const (
	granularityNone dateGranularity = iota
	granularityInstant
	granularityDay
	granularityMonth
)

type dateLayout struct {
	layout      string
	granularity dateGranularity
}

// Longer, more specific layouts come first within each window so "Feb 17
// 6:30pm" binds as an instant rather than a bare day plus noise.
var dateLayouts = []dateLayout{
	{"Jan 2 2006 3:04pm", granularityInstant},
	{"January 2 2006 3:04pm", granularityInstant},
	{"Jan 2 2006 15:04", granularityInstant},
	{"1/2/2006 3:04pm", granularityInstant},
	{"1/2/2006 15:04", granularityInstant},
	{"2006-01-02 15:04", granularityInstant},
	{"Jan 2 3:04pm", granularityInstant},
	{"January 2 3:04pm", granularityInstant},
	{"Jan 2 15:04", granularityInstant},
	{"Jan 2 2006", granularityDay},
	{"January 2 2006", granularityDay},
	{"1/2/2006", granularityDay},
	{"2006-01-02", granularityDay},
	{"January 2006", granularityMonth},
	{"Jan 2006", granularityMonth},
	{"Jan 2", granularityDay},
	{"January 2", granularityDay},
	{"3:04pm", granularityInstant},
	{"15:04", granularityInstant},
	{"January", granularityMonth},
	{"Jan", granularityMonth},
}

var monthNames = map[string]bool{
	"jan": true, "january": true,
	"feb": true, "february": true,
	"mar": true, "march": true,
	"apr": true, "april": true,
	"may": true,
	"jun": true, "june": true,
	"jul": true, "july": true,
	"aug": true, "august": true,
	"sep": true, "september": true,
	"oct": true, "october": true,
	"nov": true, "november": true,
	"dec": true, "december": true,
}

// SearchService turns free-text queries into schedule lookups. A query
// may embed one date phrase anywhere; the phrase becomes a time
// constraint and the remaining words become text filters.
type SearchService struct {
	repo   searchRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewSearchService constructs a SearchService.
func NewSearchService(repo searchRepository, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{repo: repo, logger: logger, now: time.Now}
}

// Search compiles the query and runs it. Every remaining word must
// match at least one searchable field.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]models.ScheduleSearchResult, error) {
	compiled := s.Compile(query)
	compiled.Limit = limit
	if len(compiled.Words) == 0 && !compiled.HasDateConstraint() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search query is empty")
	}

	results, err := s.repo.Search(ctx, compiled)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search schedules")
	}
	return results, nil
}

// Compile splits the query into text words and at most one time
// constraint. Windows of up to four words are tried greedily, longest
// first, from each position; the first window that parses as a date is
// consumed.
func (s *SearchService) Compile(query string) models.ScheduleSearch {
	words := strings.Fields(query)
	search := models.ScheduleSearch{}

	for i := 0; i < len(words); i++ {
		maxLen := len(words) - i
		if maxLen > 4 {
			maxLen = 4
		}
		for length := maxLen; length >= 1; length-- {
			window := words[i : i+length]
			if !dateCandidate(window) {
				continue
			}
			when, granularity, ok := s.parseDate(window)
			if !ok {
				continue
			}
			applyConstraint(&search, when, granularity)
			rest := make([]string, 0, len(words)-length)
			rest = append(rest, words[:i]...)
			rest = append(rest, words[i+length:]...)
			search.Words = rest
			return search
		}
	}

	search.Words = words
	return search
}

// parseDate tries the layout table against the normalised window. Years
// outside 1970 to 2100 are rejected as misparsed numbers; a missing
// year or date defaults to today.
func (s *SearchService) parseDate(window []string) (time.Time, dateGranularity, bool) {
	candidate := normalizeDateWords(window)
	for _, dl := range dateLayouts {
		when, err := time.ParseInLocation(dl.layout, candidate, time.UTC)
		if err != nil {
			continue
		}

		now := s.now().UTC()
		if when.Year() == 0 {
			if when.Month() == time.January && when.Day() == 1 && !strings.Contains(dl.layout, "Jan") {
				// Time-only layout: pin it to today.
				when = time.Date(now.Year(), now.Month(), now.Day(), when.Hour(), when.Minute(), 0, 0, time.UTC)
			} else {
				when = when.AddDate(now.Year(), 0, 0)
			}
		}
		if when.Year() < 1970 || when.Year() > 2100 {
			continue
		}
		return when, dl.granularity, true
	}
	return time.Time{}, granularityNone, false
}

// dateCandidate requires every word in the window to look date-like: a
// digit somewhere in it, or a month name. This keeps names and subjects
// from ever reaching the parser.
func dateCandidate(window []string) bool {
	for _, word := range window {
		if strings.ContainsFunc(word, unicode.IsDigit) {
			continue
		}
		if monthNames[strings.ToLower(word)] {
			continue
		}
		return false
	}
	return true
}

// normalizeDateWords title-cases month names and lowercases am/pm
// markers so case in the query never matters.
func normalizeDateWords(window []string) string {
	normalized := make([]string, len(window))
	for i, word := range window {
		lower := strings.ToLower(word)
		if monthNames[lower] {
			normalized[i] = strings.ToUpper(lower[:1]) + lower[1:]
			continue
		}
		normalized[i] = lower
	}
	return strings.Join(normalized, " ")
}

func applyConstraint(search *models.ScheduleSearch, when time.Time, granularity dateGranularity) {
	switch granularity {
	case granularityInstant:
		search.Instant = &when
	case granularityDay:
		start := time.Date(when.Year(), when.Month(), when.Day(), 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 1)
		search.RangeStart = &start
		search.RangeEnd = &end
	case granularityMonth:
		start := time.Date(when.Year(), when.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		search.RangeStart = &start
		search.RangeEnd = &end
	}
}
