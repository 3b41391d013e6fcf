/*
Package attendance derives per-day attendance from raw clock data.

PURPOSE:
  Nothing here is stored. A month view is computed on demand from three
  inputs: raw clock events, approved leave and the holiday calendar.

OVERLAY ORDER (later wins):
  1. Raw clock data   present if a clock-in exists, else absent
  2. Approved leave   clipped to the month, status leave + leave type
  3. Holidays         status holiday

  Days after today are blank: no status, no clock times.

BEST EFFORT:
  A malformed upstream row (bad date, bad clock time) is logged and
  dropped. Classification of the rest of the month carries on; a day
  whose raw row was dropped only reappears if leave or a holiday covers it.

SHIFTS:
  Every day carries the shift the rotation assigns it. Month.Today is
  shift.AttendanceDay, so a night-shift employee at 03:00 still sees
  yesterday highlighted.

SEE ALSO:
  - service.go: Gathers the inputs from the collaborators
  - shift/rotation.go: Shift attribution and night rollover
*/
package attendance

import (
	"log/slog"
	"sort"
	"time"

	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/leave"
	"github.com/lavkush9051/attendance-app/shift"
)

// =============================================================================
// TYPES
// =============================================================================

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLeave   Status = "leave"
	StatusHoliday Status = "holiday"
	StatusBlank   Status = ""
)

// ClockEvent is a raw upstream attendance row. Times are HH:MM; ClockOut
// may be empty.
type ClockEvent struct {
	Date     string
	ClockIn  string
	ClockOut string
}

// DayRecord is the classified view of one day.
type DayRecord struct {
	Date      generic.TimePoint
	Status    Status
	ClockIn   string
	ClockOut  string
	Shift     shift.Label
	LeaveType leave.Type
}

// Month is the classified month, keyed by day of month.
type Month struct {
	Year  int
	Month time.Month
	Days  map[int]DayRecord
	Today int // day of month of the current attendance day, 0 if outside
}

// Count returns how many days have the status.
func (m Month) Count(s Status) int {
	n := 0
	for _, d := range m.Days {
		if d.Status == s {
			n++
		}
	}
	return n
}

// MonthInput is everything Classify needs.
type MonthInput struct {
	Year     int
	Month    time.Month
	WeekOff  time.Weekday
	Now      time.Time
	Events   []ClockEvent
	Leaves   []leave.Request
	Holidays []string
	Logger   *slog.Logger
}

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify builds the month view. It never fails as a whole.
func Classify(in MonthInput) Month {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	period := generic.MonthPeriod(in.Year, in.Month)
	today := generic.DateOf(in.Now)

	m := Month{Year: in.Year, Month: in.Month, Days: make(map[int]DayRecord, period.Length())}
	if cur := shift.AttendanceDay(in.WeekOff, in.Now); period.Contains(cur) {
		m.Today = cur.Day()
	}

	assigned := func(d generic.TimePoint) DayRecord {
		return DayRecord{Date: d, Shift: shift.ComputeWeekday(in.WeekOff, d).Shift}
	}

	// 1. Raw clock data
	for _, d := range period.Days() {
		rec := assigned(d)
		if d.BeforeOrEqual(today) {
			rec.Status = StatusAbsent
		}
		m.Days[d.Day()] = rec
	}
	for _, ev := range in.Events {
		d, err := generic.ParseDate(ev.Date)
		if err != nil {
			logger.Warn("dropping clock event with bad date", "date", ev.Date, "error", err)
			continue
		}
		if !period.Contains(d) || d.After(today) {
			continue
		}
		if !validClock(ev.ClockIn) || !validClock(ev.ClockOut) {
			logger.Warn("dropping day with bad clock time",
				"date", ev.Date, "clock_in", ev.ClockIn, "clock_out", ev.ClockOut)
			delete(m.Days, d.Day())
			continue
		}
		rec, ok := m.Days[d.Day()]
		if !ok {
			continue
		}
		if ev.ClockIn != "" && rec.ClockIn == "" {
			rec.ClockIn = ev.ClockIn
		}
		if ev.ClockOut != "" {
			rec.ClockOut = ev.ClockOut
		}
		if rec.ClockIn != "" {
			rec.Status = StatusPresent
		}
		m.Days[d.Day()] = rec
	}

	// 2. Approved leave
	for _, lr := range in.Leaves {
		if lr.Status != generic.StateApproved {
			continue
		}
		clipped, ok := lr.Period.Intersect(period)
		if !ok {
			continue
		}
		for _, d := range clipped.Days() {
			if d.After(today) {
				break
			}
			rec := assigned(d)
			rec.Status = StatusLeave
			rec.LeaveType = lr.Type
			m.Days[d.Day()] = rec
		}
	}

	// 3. Holidays
	for _, h := range in.Holidays {
		d, err := generic.ParseDate(h)
		if err != nil {
			logger.Warn("dropping malformed holiday", "date", h, "error", err)
			continue
		}
		if !period.Contains(d) || d.After(today) {
			continue
		}
		rec := assigned(d)
		rec.Status = StatusHoliday
		m.Days[d.Day()] = rec
	}
	return m
}

func validClock(s string) bool {
	if s == "" {
		return true
	}
	_, err := shift.ParseClock(s)
	return err == nil
}

// =============================================================================
// REPORT ROWS
// =============================================================================

// Row is one line of a monthly attendance report.
type Row struct {
	Date      string
	Weekday   string
	Status    Status
	Shift     shift.Label
	ClockIn   string
	ClockOut  string
	LeaveType string
}

// Rows flattens the month in day order for the external report formatter.
func Rows(m Month) []Row {
	keys := make([]int, 0, len(m.Days))
	for k := range m.Days {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		d := m.Days[k]
		rows = append(rows, Row{
			Date:      d.Date.String(),
			Weekday:   d.Date.Weekday().String(),
			Status:    d.Status,
			Shift:     d.Shift,
			ClockIn:   d.ClockIn,
			ClockOut:  d.ClockOut,
			LeaveType: string(d.LeaveType),
		})
	}
	return rows
}
