package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/lavkush9051/attendance-app/attendance"
	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var office = attendance.Geofence{Latitude: 28.6139, Longitude: 77.2090, RadiusMeters: 200}

func newRecorder(t *testing.T) (*attendance.Recorder, *attendance.MemoryEvents) {
	t.Helper()
	dir := employee.NewMemoryDirectory(
		employee.Employee{ID: 1, Name: "Asha", WeekOffDay: time.Sunday},   // Shift III on 2025-07-01
		employee.Employee{ID: 2, Name: "Ravi", WeekOffDay: time.Saturday}, // Shift I on 2025-07-01
	)
	events := attendance.NewMemoryEvents()
	return attendance.NewRecorder(dir, events, attendance.RecorderConfig{Fence: office}), events
}

func clock(emp generic.EntityID, kind attendance.ClockKind, at time.Time) attendance.ClockInput {
	return attendance.ClockInput{
		EmployeeID: emp, Kind: kind, FacePassed: true,
		Latitude: 28.6140, Longitude: 77.2091, At: at,
	}
}

func TestRecord_DayShift(t *testing.T) {
	r, events := newRecorder(t)
	ctx := context.Background()

	_, err := r.Record(ctx, clock(2, attendance.KindIn, time.Date(2025, time.July, 1, 6, 55, 0, 0, time.UTC)))
	require.NoError(t, err)
	ev, err := r.Record(ctx, clock(2, attendance.KindOut, time.Date(2025, time.July, 1, 15, 35, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.Equal(t, attendance.ClockEvent{Date: "2025-07-01", ClockIn: "06:55", ClockOut: "15:35"}, ev)

	stored, err := events.ClockEvents(ctx, 2, generic.MonthPeriod(2025, time.July))
	require.NoError(t, err)
	assert.Equal(t, []attendance.ClockEvent{ev}, stored)
}

func TestRecord_NightShiftClockOutRollsBack(t *testing.T) {
	// GIVEN: A Shift III employee clocked in at 23:05 on 07-01
	r, _ := newRecorder(t)
	ctx := context.Background()
	_, err := r.Record(ctx, clock(1, attendance.KindIn, time.Date(2025, time.July, 1, 23, 5, 0, 0, time.UTC)))
	require.NoError(t, err)

	// WHEN: Clocking out at 05:30 on 07-02
	ev, err := r.Record(ctx, clock(1, attendance.KindOut, time.Date(2025, time.July, 2, 5, 30, 0, 0, time.UTC)))

	// THEN: The clock-out closes the 07-01 record
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01", ev.Date)
	assert.Equal(t, "23:05", ev.ClockIn)
	assert.Equal(t, "05:30", ev.ClockOut)
}

func TestRecord_ClockOutWithoutClockIn(t *testing.T) {
	r, _ := newRecorder(t)
	_, err := r.Record(context.Background(), clock(2, attendance.KindOut, time.Date(2025, time.July, 1, 15, 30, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestRecord_Rejections(t *testing.T) {
	r, _ := newRecorder(t)
	ctx := context.Background()
	at := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)

	noFace := clock(2, attendance.KindIn, at)
	noFace.FacePassed = false
	_, err := r.Record(ctx, noFace)
	assert.ErrorIs(t, err, generic.ErrValidation)

	far := clock(2, attendance.KindIn, at)
	far.Latitude, far.Longitude = 28.7041, 77.1025
	_, err = r.Record(ctx, far)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = r.Record(ctx, clock(99, attendance.KindIn, at))
	assert.ErrorIs(t, err, generic.ErrNotFound)

	_, err = r.Record(ctx, clock(2, attendance.KindIn, at))
	require.NoError(t, err)
	_, err = r.Record(ctx, clock(2, attendance.KindIn, at.Add(time.Hour)))
	assert.ErrorIs(t, err, generic.ErrValidation, "second clock-in")
}

func TestGeofence_ZeroRadiusOnlyChecksRange(t *testing.T) {
	var open attendance.Geofence
	assert.True(t, open.Contains(12.97, 77.59))
	assert.False(t, open.Contains(91, 0))
	assert.False(t, open.Contains(0, -181))
}
