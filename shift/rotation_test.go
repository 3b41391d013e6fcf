package shift_test

import (
	"testing"
	"time"

	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/shift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestCompute_EpochSaturdayIsShiftI(t *testing.T) {
	// GIVEN: Week-off Saturday, the rotation epoch itself (a Tuesday)
	// WHEN: Computing the shift
	// THEN: Saturday is slot 0 of the seed -> Shift I

	info, err := shift.Compute("Saturday", day(2025, time.July, 1))
	require.NoError(t, err)
	assert.Equal(t, shift.ShiftI, info.Shift)
	assert.Equal(t, "07:00-15:30", info.Window.String())
}

func TestCompute_WeekOffDayIsHoliday(t *testing.T) {
	info, err := shift.Compute("Saturday", day(2025, time.July, 5))
	require.NoError(t, err)
	assert.Equal(t, shift.ShiftHoliday, info.Shift)
	assert.True(t, info.Window.IsZero())
}

func TestCompute_SeedSlots(t *testing.T) {
	epoch := day(2025, time.July, 1)
	cases := map[string]shift.Label{
		"Saturday":  shift.ShiftI,
		"Wednesday": shift.ShiftI,
		"Friday":    shift.ShiftII,
		"Monday":    shift.ShiftII,
		"Thursday":  shift.ShiftIII,
		"Sunday":    shift.ShiftIII,
		"Tuesday":   shift.ShiftHoliday,
	}
	for weekOff, want := range cases {
		info, err := shift.Compute(weekOff, epoch)
		require.NoError(t, err, weekOff)
		assert.Equal(t, want, info.Shift, weekOff)
	}
}

func TestCompute_RotatesOverTime(t *testing.T) {
	// GIVEN: Monday week-off, Shift II at the epoch
	// WHEN: Nine days have elapsed (2025-07-10)
	// THEN: Monday has rotated into slot 1 -> Shift I

	info, err := shift.Compute("Monday", day(2025, time.July, 10))
	require.NoError(t, err)
	assert.Equal(t, shift.ShiftI, info.Shift)

	info, err = shift.Compute("Wednesday", day(2025, time.July, 5))
	require.NoError(t, err)
	assert.Equal(t, shift.ShiftIII, info.Shift)
	assert.True(t, info.Window.CrossesMidnight())
}

func TestCompute_RepeatsEvery42Days(t *testing.T) {
	start := day(2025, time.July, 1)
	for i := 0; i < 60; i++ {
		d := start.AddDays(i)
		assert.Equal(t, shift.Rotation(d), shift.Rotation(d.AddDays(42)), d.String())
	}
}

func TestCompute_BeforeEpochUsesSameCycle(t *testing.T) {
	info, err := shift.Compute("Tuesday", day(2025, time.June, 30))
	require.NoError(t, err)
	assert.Equal(t, shift.ShiftII, info.Shift)

	assert.Equal(t, shift.Rotation(day(2025, time.July, 1)), shift.Rotation(day(2025, time.May, 20)))
}

func TestCompute_InvalidWeekday(t *testing.T) {
	_, err := shift.Compute("Funday", day(2025, time.July, 1))
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)
}

func TestCompute_WeekdayAliases(t *testing.T) {
	for _, s := range []string{"saturday", "SAT", " Saturday "} {
		wd, err := shift.ParseWeekday(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Saturday, wd)
	}
}

func TestWindows(t *testing.T) {
	assert.Equal(t, "15:00-23:30", shift.Window(shift.ShiftII).String())
	assert.Equal(t, "23:00-07:30", shift.Window(shift.ShiftIII).String())
	assert.Equal(t, "10:00-18:30", shift.Window(shift.ShiftGeneral).String())
	assert.False(t, shift.Window(shift.ShiftGeneral).CrossesMidnight())
}

// =============================================================================
// NIGHT SHIFT BOUNDARY
// =============================================================================

func TestAttendanceDay_NightShiftBeforeSixIsYesterday(t *testing.T) {
	// GIVEN: Sunday week-off works Shift III on 2025-07-01
	// WHEN: It is 03:00 on 2025-07-02
	// THEN: Today's record is still 2025-07-01

	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, time.July, 2, 3, 0, 0, 0, ist)
	assert.Equal(t, day(2025, time.July, 1), shift.AttendanceDay(time.Sunday, now))
}

func TestAttendanceDay_NightShiftAfterSixIsToday(t *testing.T) {
	now := time.Date(2025, time.July, 2, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, day(2025, time.July, 2), shift.AttendanceDay(time.Sunday, now))
}

func TestAttendanceDay_DayShiftIsAlwaysToday(t *testing.T) {
	now := time.Date(2025, time.July, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, day(2025, time.July, 2), shift.AttendanceDay(time.Saturday, now))
}

func TestParseLabel(t *testing.T) {
	l, err := shift.ParseLabel("Shift III")
	require.NoError(t, err)
	assert.Equal(t, shift.ShiftIII, l)

	l, err = shift.ParseLabel("general")
	require.NoError(t, err)
	assert.Equal(t, shift.ShiftGeneral, l)

	_, err = shift.ParseLabel("IV")
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)
}
