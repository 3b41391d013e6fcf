package config

import (
	"testing"

	"github.com/lavkush9051/attendance-app/leave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "attendance.db", cfg.Database.Path)
	assert.Equal(t, "Asia/Kolkata", cfg.App.Location.String())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.App.CORSOrigins)
	assert.Equal(t, 10, cfg.Leave.BackdateWindowDays)
	assert.Equal(t, leave.CancelAnytime, cfg.Leave.CancelCutoff)
	assert.Equal(t, 0, cfg.Leave.SecondLevelMinDays)
	assert.False(t, cfg.Attendance.RegularizationEscalation)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://portal.example.com, https://admin.example.com")
	t.Setenv("CANCEL_CUTOFF", "day_before")
	t.Setenv("SECOND_LEVEL_MIN_DAYS", "3")
	t.Setenv("REGULARIZATION_ESCALATION", "true")
	t.Setenv("GEOFENCE_RADIUS_METERS", "250")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, []string{"https://portal.example.com", "https://admin.example.com"}, cfg.App.CORSOrigins)
	assert.Equal(t, leave.CancelDayBefore, cfg.Leave.CancelCutoff)
	assert.Equal(t, 3, cfg.Leave.SecondLevelMinDays)
	assert.True(t, cfg.Attendance.RegularizationEscalation)
	assert.Equal(t, 250.0, cfg.Attendance.GeofenceRadiusMeters)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"APP_PORT":             "eighty",
		"TIMEZONE":             "Mars/Olympus",
		"CANCEL_CUTOFF":        "whenever",
		"BACKDATE_WINDOW_DAYS": "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_SecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()

	assert.ErrorContains(t, err, "JWT_SECRET")
}
