package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/lavkush9051/attendance-app/leave"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Leave      LeaveConfig
	Attendance AttendanceConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
	Location    *time.Location
}

type DatabaseConfig struct {
	Path string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

type LeaveConfig struct {
	BackdateWindowDays int
	CancelCutoff       leave.CancelCutoff
	SecondLevelMinDays int
}

type AttendanceConfig struct {
	RegularizationEscalation bool
	OfficeLatitude           float64
	OfficeLongitude          float64
	GeofenceRadiusMeters     float64
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	config := &Config{}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Asia/Kolkata"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		Location:    loc,
	}

	config.Database = DatabaseConfig{
		Path: getEnv("DB_PATH", "attendance.db"),
	}

	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET", ""),
	}

	// Leave workflow
	window, err := strconv.Atoi(getEnv("BACKDATE_WINDOW_DAYS", strconv.Itoa(leave.DefaultBackdateWindowDays)))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKDATE_WINDOW_DAYS: %w", err)
	}
	cutoff, err := leave.ParseCancelCutoff(getEnv("CANCEL_CUTOFF", string(leave.CancelAnytime)))
	if err != nil {
		return nil, fmt.Errorf("invalid CANCEL_CUTOFF: %w", err)
	}
	minDays, err := strconv.Atoi(getEnv("SECOND_LEVEL_MIN_DAYS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid SECOND_LEVEL_MIN_DAYS: %w", err)
	}

	config.Leave = LeaveConfig{
		BackdateWindowDays: window,
		CancelCutoff:       cutoff,
		SecondLevelMinDays: minDays,
	}

	// Attendance
	escalation, err := strconv.ParseBool(getEnv("REGULARIZATION_ESCALATION", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGULARIZATION_ESCALATION: %w", err)
	}
	config.Attendance = AttendanceConfig{RegularizationEscalation: escalation}
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"OFFICE_LATITUDE", &config.Attendance.OfficeLatitude},
		{"OFFICE_LONGITUDE", &config.Attendance.OfficeLongitude},
		{"GEOFENCE_RADIUS_METERS", &config.Attendance.GeofenceRadiusMeters},
	} {
		v, err := strconv.ParseFloat(getEnv(f.key, "0"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Leave.BackdateWindowDays <= 0 {
		return fmt.Errorf("BACKDATE_WINDOW_DAYS must be positive")
	}
	if c.Attendance.GeofenceRadiusMeters < 0 {
		return fmt.Errorf("GEOFENCE_RADIUS_METERS must not be negative")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
