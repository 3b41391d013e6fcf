package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/leave"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ClockSource is the raw attendance source.
type ClockSource interface {
	ClockEvents(ctx context.Context, empID generic.EntityID, p generic.Period) ([]ClockEvent, error)
}

// EventWriter records clock events, from the clock-in flow or from an
// approved regularization. A write replaces the event of that date.
type EventWriter interface {
	PutClockEvent(ctx context.Context, empID generic.EntityID, ev ClockEvent) error
}

// EventStore is both sides of the attendance source.
type EventStore interface {
	ClockSource
	EventWriter
}

// HolidayCalendar returns holiday dates (YYYY-MM-DD) of a month.
type HolidayCalendar interface {
	Holidays(ctx context.Context, year int, month time.Month) ([]string, error)
}

// LeaveSource returns approved leave overlapping a period.
type LeaveSource interface {
	ListApproved(ctx context.Context, empID generic.EntityID, p generic.Period) ([]leave.Request, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Config struct {
	Clock    generic.Clock
	Location *time.Location
	Logger   *slog.Logger
}

type Service struct {
	directory employee.Directory
	clocks    ClockSource
	holidays  HolidayCalendar
	leaves    LeaveSource
	cfg       Config
	logger    *slog.Logger
}

func NewService(directory employee.Directory, clocks ClockSource, holidays HolidayCalendar, leaves LeaveSource, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = generic.SystemClock{Location: cfg.Location}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		directory: directory,
		clocks:    clocks,
		holidays:  holidays,
		leaves:    leaves,
		cfg:       cfg,
		logger:    logger.With("component", "attendance"),
	}
}

// ClassifyMonth gathers the month's inputs and classifies every day.
// Only collaborator failures are returned as errors.
func (s *Service) ClassifyMonth(ctx context.Context, empID generic.EntityID, year int, month time.Month) (Month, error) {
	if month < time.January || month > time.December {
		return Month{}, generic.NewValidationError("month", fmt.Sprintf("invalid month %d", month))
	}
	if year < 1 {
		return Month{}, generic.NewValidationError("year", fmt.Sprintf("invalid year %d", year))
	}

	emp, err := s.directory.Employee(ctx, empID)
	if err != nil {
		return Month{}, err
	}
	period := generic.MonthPeriod(year, month)

	events, err := s.clocks.ClockEvents(ctx, empID, period)
	if err != nil {
		return Month{}, fmt.Errorf("failed to load clock events: %w", err)
	}
	leaves, err := s.leaves.ListApproved(ctx, empID, period)
	if err != nil {
		return Month{}, fmt.Errorf("failed to load approved leave: %w", err)
	}
	holidays, err := s.holidays.Holidays(ctx, year, month)
	if err != nil {
		return Month{}, fmt.Errorf("failed to load holidays: %w", err)
	}

	return Classify(MonthInput{
		Year:     year,
		Month:    month,
		WeekOff:  emp.WeekOffDay,
		Now:      s.now(),
		Events:   events,
		Leaves:   leaves,
		Holidays: holidays,
		Logger:   s.logger.With("emp_id", empID),
	}), nil
}

func (s *Service) now() time.Time {
	now := s.cfg.Clock.Now()
	if s.cfg.Location != nil {
		now = now.In(s.cfg.Location)
	}
	return now
}

// =============================================================================
// IN-MEMORY COLLABORATORS
// =============================================================================

// MemoryEvents is an in-memory EventStore.
type MemoryEvents struct {
	mu     sync.RWMutex
	events map[generic.EntityID]map[string]ClockEvent
}

func NewMemoryEvents() *MemoryEvents {
	return &MemoryEvents{events: make(map[generic.EntityID]map[string]ClockEvent)}
}

func (m *MemoryEvents) PutClockEvent(_ context.Context, empID generic.EntityID, ev ClockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events[empID] == nil {
		m.events[empID] = make(map[string]ClockEvent)
	}
	m.events[empID][ev.Date] = ev
	return nil
}

// ClockEvents returns rows inside p plus rows whose date doesn't parse, so
// that the classifier sees what upstream sent.
func (m *MemoryEvents) ClockEvents(_ context.Context, empID generic.EntityID, p generic.Period) ([]ClockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ClockEvent
	for date, ev := range m.events[empID] {
		d, err := generic.ParseDate(date)
		if err == nil && !p.Contains(d) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// HolidayList is a static HolidayCalendar.
type HolidayList []string

func (h HolidayList) Holidays(_ context.Context, year int, month time.Month) ([]string, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	var out []string
	for _, d := range h {
		if strings.HasPrefix(d, prefix) {
			out = append(out, d)
		}
	}
	return out, nil
}
