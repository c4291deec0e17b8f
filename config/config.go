package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"library-catalog/library"
)

// App is the runtime configuration, read from the environment and then
// overridden by command line flags.
type App struct {
	DBPath       string
	LogLevel     string
	LogFormat    string
	LoanDays     int
	FinePerDay   string
	MaxFine      string
	StudentLimit int
	FacultyLimit int
}

func Load() (App, error) {
	cfg := App{
		DBPath:     os.Getenv("LIBRARY_DB"),
		LogLevel:   getenv("LIBRARY_LOG_LEVEL", "warn"),
		LogFormat:  getenv("LIBRARY_LOG_FORMAT", "text"),
		FinePerDay: getenv("LIBRARY_FINE_PER_DAY", "5.00"),
		MaxFine:    getenv("LIBRARY_MAX_FINE", "200.00"),
	}
	var err error
	if cfg.LoanDays, err = getint("LIBRARY_LOAN_DAYS", 14); err != nil {
		return App{}, err
	}
	if cfg.StudentLimit, err = getint("LIBRARY_STUDENT_LIMIT", 3); err != nil {
		return App{}, err
	}
	if cfg.FacultyLimit, err = getint("LIBRARY_FACULTY_LIMIT", 5); err != nil {
		return App{}, err
	}
	return cfg, nil
}

// Policy converts the lending settings into a library.Policy.
func (c App) Policy() (library.Policy, error) {
	fine, err := decimal.NewFromString(c.FinePerDay)
	if err != nil {
		return library.Policy{}, fmt.Errorf("fine per day %q: %w", c.FinePerDay, err)
	}
	maxFine, err := decimal.NewFromString(c.MaxFine)
	if err != nil {
		return library.Policy{}, fmt.Errorf("max fine %q: %w", c.MaxFine, err)
	}
	if fine.IsNegative() || maxFine.IsNegative() {
		return library.Policy{}, fmt.Errorf("fines must not be negative")
	}
	if c.LoanDays < 0 {
		return library.Policy{}, fmt.Errorf("loan days must not be negative, got %d", c.LoanDays)
	}
	return library.Policy{
		LoanDays:     c.LoanDays,
		FinePerDay:   fine,
		MaxFine:      maxFine,
		StudentLimit: c.StudentLimit,
		FacultyLimit: c.FacultyLimit,
	}, nil
}

// Logger builds the slog logger described by LogLevel and LogFormat.
func (c App) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
