/*
Package shift classifies calendar days into shift buckets.

PURPOSE:
  Maps (employee week-off day, target date) to the shift the employee
  works that day and its time window. Pure functions, no dependencies.

ROTATION:
  A six-slot sequence of weekday names is anchored at the epoch:

    [Saturday, Wednesday, Friday, Monday, Thursday, Sunday]   on 2025-07-01

  For every day d after the epoch up to the target, the slot holding d's
  weekday is replaced by the weekday before it. Each slot therefore moves
  back one weekday every six days, so the whole sequence repeats every 42
  days; dates before the epoch resolve through the same cycle.

CLASSIFICATION:
  target weekday == week-off day   -> Holiday
  slot 0-1                         -> Shift I    07:00-15:30
  slot 2-3                         -> Shift II   15:00-23:30
  slot 4-5                         -> Shift III  23:00-07:30 (next day)
  not in the sequence              -> General    10:00-18:30

NIGHT SHIFT BOUNDARY:
  A Shift III day starts at 23:00 and ends the next morning. Before 06:00
  "today's" attendance record of a night-shift employee is yesterday's.
  AttendanceDay is the single place that rule lives.

SEE ALSO:
  - attendance/classifier.go: Per-day shift attribution
  - attendance/clock.go: Clock-out rollover
*/
package shift

import (
	"fmt"
	"strings"
	"time"

	"github.com/lavkush9051/attendance-app/generic"
)

// =============================================================================
// SHIFT LABELS AND WINDOWS
// =============================================================================

type Label string

const (
	ShiftI       Label = "I"
	ShiftII      Label = "II"
	ShiftIII     Label = "III"
	ShiftGeneral Label = "General"
	ShiftHoliday Label = "Holiday"
)

// ParseLabel accepts the label with or without a "Shift " prefix.
func ParseLabel(s string) (Label, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "Shift "), "shift ")
	switch strings.ToLower(v) {
	case "i", "1":
		return ShiftI, nil
	case "ii", "2":
		return ShiftII, nil
	case "iii", "3":
		return ShiftIII, nil
	case "general", "g":
		return ShiftGeneral, nil
	case "holiday":
		return ShiftHoliday, nil
	}
	return "", fmt.Errorf("unknown shift %q: %w", s, generic.ErrInvalidArgument)
}

// ClockOfDay is a wall-clock time without a date.
type ClockOfDay struct {
	Hour   int
	Minute int
}

func (c ClockOfDay) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Minutes since midnight.
func (c ClockOfDay) Minutes() int { return c.Hour*60 + c.Minute }

// ParseClock parses HH:MM.
func ParseClock(s string) (ClockOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockOfDay{}, fmt.Errorf("invalid time %q: %w", s, generic.ErrInvalidArgument)
	}
	return ClockOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeRange is a shift window. End before Start means the window ends on
// the following day.
type TimeRange struct {
	Start ClockOfDay
	End   ClockOfDay
}

func (r TimeRange) IsZero() bool { return r == TimeRange{} }
func (r TimeRange) CrossesMidnight() bool { return r.End.Minutes() < r.Start.Minutes() }

func (r TimeRange) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Start.String() + "-" + r.End.String()
}

var windows = map[Label]TimeRange{
	ShiftI:       {Start: ClockOfDay{7, 0}, End: ClockOfDay{15, 30}},
	ShiftII:      {Start: ClockOfDay{15, 0}, End: ClockOfDay{23, 30}},
	ShiftIII:     {Start: ClockOfDay{23, 0}, End: ClockOfDay{7, 30}},
	ShiftGeneral: {Start: ClockOfDay{10, 0}, End: ClockOfDay{18, 30}},
}

// Window returns the time window of a label; Holiday has none.
func Window(l Label) TimeRange { return windows[l] }

// Info is the result of Compute.
type Info struct {
	Shift  Label
	Window TimeRange
}

// =============================================================================
// ROTATION
// =============================================================================

// Epoch anchors the rotation sequence.
var Epoch = generic.NewTimePoint(2025, time.July, 1)

var seed = [6]time.Weekday{
	time.Saturday, time.Wednesday, time.Friday, time.Monday, time.Thursday, time.Sunday,
}

// cycleDays is the period after which the sequence returns to the seed.
const cycleDays = 42

// NightRolloverHour is the hour before which a night-shift employee's
// current record is still yesterday's.
const NightRolloverHour = 6

// Rotation returns the rotated sequence in effect on target.
func Rotation(target generic.TimePoint) [6]time.Weekday {
	seq := seed
	elapsed := generic.DaysBetween(Epoch, target) % cycleDays
	if elapsed < 0 {
		elapsed += cycleDays
	}
	day := Epoch
	for i := 0; i < elapsed; i++ {
		day = day.AddDays(1)
		wd := day.Weekday()
		prev := (wd + 6) % 7
		for j := range seq {
			if seq[j] == wd {
				seq[j] = prev
			}
		}
	}
	return seq
}

// Compute classifies target for an employee whose weekly off is weekOff.
func Compute(weekOff string, target generic.TimePoint) (Info, error) {
	wd, err := ParseWeekday(weekOff)
	if err != nil {
		return Info{}, err
	}
	return ComputeWeekday(wd, target), nil
}

// ComputeWeekday is Compute for an already parsed week-off day.
func ComputeWeekday(weekOff time.Weekday, target generic.TimePoint) Info {
	if target.Weekday() == weekOff {
		return Info{Shift: ShiftHoliday}
	}

	idx := -1
	for i, wd := range Rotation(target) {
		if wd == weekOff {
			idx = i
			break
		}
	}

	var l Label
	switch idx {
	case 0, 1:
		l = ShiftI
	case 2, 3:
		l = ShiftII
	case 4, 5:
		l = ShiftIII
	default:
		l = ShiftGeneral
	}
	return Info{Shift: l, Window: windows[l]}
}

// AttendanceDay returns the calendar day whose attendance record "now"
// belongs to. Before 06:00, an employee who worked Shift III the previous
// day is still on yesterday's record.
func AttendanceDay(weekOff time.Weekday, now time.Time) generic.TimePoint {
	today := generic.DateOf(now)
	if now.Hour() >= NightRolloverHour {
		return today
	}
	yesterday := today.AddDays(-1)
	if ComputeWeekday(weekOff, yesterday).Shift == ShiftIII {
		return yesterday
	}
	return today
}

// =============================================================================
// WEEKDAYS
// =============================================================================

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or three-letter weekday names, any case.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q: %w", s, generic.ErrInvalidArgument)
	}
	return wd, nil
}
