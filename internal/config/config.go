// Package config gathers run parameters from the environment, an optional
// .env file and positional arguments.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"nwszones/internal/database"
	"nwszones/internal/dissolve"
)

// ErrInvalid marks a configuration problem, as opposed to a failure while
// processing data.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every parameter of a run.
type Config struct {
	InputPath    string
	OutputPath   string
	FilterField  string
	FilterValue  string
	GroupByField string
	Keep         dissolve.Keep
	CountField   string
	Repair       bool

	ShowPlot   bool
	PlotWidth  int
	PlotHeight int

	LogLevel  string
	LogFormat string

	DBTable string
	DB      database.DBConfig
}

// Load reads .env (without overriding variables already set), then the
// environment. args are the positional command-line arguments: the first
// overrides INPUT_PATH and the second OUTPUT_PATH.
func Load(args []string) (Config, error) {
	_ = godotenv.Load(".env")
	return fromEnv(args)
}

func fromEnv(args []string) (Config, error) {
	cfg := Config{
		InputPath:    getEnvOrDefault("INPUT_PATH", "z_18mr25.shp"),
		OutputPath:   getEnvOrDefault("OUTPUT_PATH", "mi_dissolved_by_cwa.geojson"),
		FilterField:  getEnvOrDefault("FILTER_FIELD", "STATE"),
		FilterValue:  getEnvOrDefault("FILTER_VALUE", "MI"),
		GroupByField: getEnvOrDefault("GROUP_BY_FIELD", "CWA"),
		CountField:   os.Getenv("COUNT_FIELD"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:    os.Getenv("LOG_FORMAT"),
		DBTable:      os.Getenv("DB_TABLE"),
		DB:           database.LoadDatabaseConfig(),
	}
	if len(args) > 0 && args[0] != "" {
		cfg.InputPath = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		cfg.OutputPath = args[1]
	}
	if len(args) > 2 {
		return cfg, fmt.Errorf("%w: expected at most 2 arguments, got %d", ErrInvalid, len(args))
	}

	var err error
	if cfg.Keep, err = dissolve.ParseKeep(os.Getenv("DISSOLVE_KEEP")); err != nil {
		return cfg, fmt.Errorf("%w: DISSOLVE_KEEP: %v", ErrInvalid, err)
	}
	if cfg.Repair, err = envBool("REPAIR_GEOMETRY"); err != nil {
		return cfg, err
	}
	if cfg.ShowPlot, err = envBool("SHOW_PLOT"); err != nil {
		return cfg, err
	}
	if cfg.PlotWidth, err = envInt("PLOT_WIDTH", 100); err != nil {
		return cfg, err
	}
	if cfg.PlotHeight, err = envInt("PLOT_HEIGHT", 40); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first unusable parameter.
func (c Config) Validate() error {
	switch {
	case c.InputPath == "":
		return fmt.Errorf("%w: input path is empty", ErrInvalid)
	case c.OutputPath == "":
		return fmt.Errorf("%w: output path is empty", ErrInvalid)
	case c.FilterField == "":
		return fmt.Errorf("%w: FILTER_FIELD is empty", ErrInvalid)
	case c.GroupByField == "":
		return fmt.Errorf("%w: GROUP_BY_FIELD is empty", ErrInvalid)
	case c.CountField != "" && c.CountField == c.GroupByField:
		return fmt.Errorf("%w: COUNT_FIELD %q collides with GROUP_BY_FIELD", ErrInvalid, c.CountField)
	case c.Keep != dissolve.KeepFirst && c.Keep != dissolve.KeepKey:
		return fmt.Errorf("%w: unknown dissolve keep mode %d", ErrInvalid, c.Keep)
	case c.PlotWidth < 1 || c.PlotHeight < 1:
		return fmt.Errorf("%w: plot size %dx%d", ErrInvalid, c.PlotWidth, c.PlotHeight)
	}
	if c.DBTable != "" && !database.ValidTableName(c.DBTable) {
		return fmt.Errorf("%w: DB_TABLE %q is not a valid table name", ErrInvalid, c.DBTable)
	}
	return nil
}

// Publish reports whether dissolved regions should go to the database.
func (c Config) Publish() bool {
	return c.DBTable != "" && c.DB.Host != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, key, v)
	}
	return b, nil
}

func envInt(key string, defaultValue int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
	}
	return n, nil
}
