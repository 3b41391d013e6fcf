package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/shift"
)

// =============================================================================
// CLOCK EVENT RECORDING
// =============================================================================
//
// Face verification and geolocation happen outside; the recorder only
// checks their outcome. The attendance day of an event comes from
// shift.AttendanceDay, so a Shift III clock-out at 05:30 closes
// yesterday's record.

type ClockKind string

const (
	KindIn  ClockKind = "in"
	KindOut ClockKind = "out"
)

// ClockInput is one clock in/out attempt.
type ClockInput struct {
	EmployeeID generic.EntityID
	Kind       ClockKind
	FacePassed bool
	Latitude   float64
	Longitude  float64
	At         time.Time // zero means now
}

// Geofence is the allowed area around the office. A zero radius only
// checks that the coordinates are valid.
type Geofence struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

const earthRadiusMeters = 6371000

// Contains reports whether the point is inside the fence.
func (g Geofence) Contains(lat, lon float64) bool {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	if g.RadiusMeters <= 0 {
		return true
	}
	return haversine(g.Latitude, g.Longitude, lat, lon) <= g.RadiusMeters
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

type RecorderConfig struct {
	Fence    Geofence
	Clock    generic.Clock
	Location *time.Location
	Logger   *slog.Logger
}

type Recorder struct {
	directory employee.Directory
	events    EventStore
	cfg       RecorderConfig
	logger    *slog.Logger

	locks generic.KeyedMutex
}

func NewRecorder(directory employee.Directory, events EventStore, cfg RecorderConfig) *Recorder {
	if cfg.Clock == nil {
		cfg.Clock = generic.SystemClock{Location: cfg.Location}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{directory: directory, events: events, cfg: cfg, logger: logger.With("component", "clock")}
}

// Record stores a clock in or out and returns the updated day event.
func (r *Recorder) Record(ctx context.Context, in ClockInput) (ClockEvent, error) {
	if in.Kind != KindIn && in.Kind != KindOut {
		return ClockEvent{}, generic.NewValidationError("kind", fmt.Sprintf("unknown clock kind %q", in.Kind))
	}
	if !in.FacePassed {
		return ClockEvent{}, generic.NewValidationError("face", "face verification failed")
	}
	if !r.cfg.Fence.Contains(in.Latitude, in.Longitude) {
		return ClockEvent{}, generic.NewValidationError("location", "outside the allowed area")
	}

	emp, err := r.directory.Employee(ctx, in.EmployeeID)
	if err != nil {
		return ClockEvent{}, err
	}

	at := in.At
	if at.IsZero() {
		at = r.cfg.Clock.Now()
	}
	if r.cfg.Location != nil {
		at = at.In(r.cfg.Location)
	}
	day := shift.AttendanceDay(emp.WeekOffDay, at)
	stamp := at.Format("15:04")

	unlock := r.locks.Lock(in.EmployeeID.String() + "/" + day.String())
	defer unlock()

	existing, err := r.events.ClockEvents(ctx, in.EmployeeID, generic.Period{Start: day, End: day})
	if err != nil {
		return ClockEvent{}, fmt.Errorf("failed to load clock events: %w", err)
	}
	ev := ClockEvent{Date: day.String()}
	for _, e := range existing {
		if e.Date == ev.Date {
			ev = e
		}
	}

	switch in.Kind {
	case KindIn:
		if ev.ClockIn != "" {
			return ClockEvent{}, generic.NewValidationError("clock_in", "already clocked in on "+ev.Date)
		}
		ev.ClockIn = stamp
	case KindOut:
		if ev.ClockIn == "" {
			return ClockEvent{}, generic.NewValidationError("clock_out", "no clock-in recorded on "+ev.Date)
		}
		ev.ClockOut = stamp
	}

	if err := r.events.PutClockEvent(ctx, in.EmployeeID, ev); err != nil {
		return ClockEvent{}, fmt.Errorf("failed to save clock event: %w", err)
	}
	r.logger.Info("clock event recorded", "emp_id", in.EmployeeID, "kind", in.Kind, "date", ev.Date, "time", stamp)
	return ev, nil
}
