package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/paulmach/orb/planar"
	go_ora "github.com/sijms/go-ora/v2"

	"nwszones/internal/geojson"
	"nwszones/internal/logger"
	"nwszones/internal/types"
)

// dsn builds a properly encoded connection string for Oracle Autonomous Database
func dsn(username, password, host, port, service string, walletLocation string) string {
	if walletLocation != "" {
		// Use wallet-based mTLS connection
		return fmt.Sprintf(
			"oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			url.PathEscape(username), url.PathEscape(password), host, port, service, url.PathEscape(walletLocation))
	}

	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(username, password), // escapes automatically
		Host:     host + ":" + port,
		Path:     "/" + service, // keep full service name
		RawQuery: "ssl=true",    // ADB requires TCPS on 1522
	}).String()
}

// DBConfig holds database connection configuration
type DBConfig struct {
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
}

// Database holds the database connection and configuration
type Database struct {
	db     *sql.DB
	config DBConfig
}

// NewDatabase opens a connection and pings it with a 10 second timeout.
func NewDatabase(config DBConfig) (*Database, error) {
	connStr := dsn(config.Username, config.Password, config.Host, config.Port, config.Service, config.WalletLocation)

	logger.Log.Info().
		Str("host", config.Host).
		Str("service", config.Service).
		Bool("wallet", config.WalletLocation != "").
		Msg("connecting to Oracle")

	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		config: config,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

var tableName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]{0,127}$`)

// ValidTableName reports whether name can be spliced into DDL and DML as an
// unquoted Oracle identifier.
func ValidTableName(name string) bool {
	return tableName.MatchString(name)
}

func createTableSQL(table string) string {
	return `CREATE TABLE ` + table + ` (
		zone_key   VARCHAR2(64) PRIMARY KEY,
		geojson    CLOB,
		area       NUMBER,
		members    NUMBER,
		updated_at TIMESTAMP
	)`
}

func mergeSQL(table string) string {
	return `
		MERGE INTO ` + table + ` d
		USING (SELECT :1 AS zone_key, :2 AS geojson, :3 AS area, :4 AS members FROM dual) s
		ON (d.zone_key = s.zone_key)
		WHEN MATCHED THEN UPDATE SET
			d.geojson = s.geojson, d.area = s.area, d.members = s.members, d.updated_at = SYSTIMESTAMP
		WHEN NOT MATCHED THEN INSERT (zone_key, geojson, area, members, updated_at)
			VALUES (s.zone_key, s.geojson, s.area, s.members, SYSTIMESTAMP)
	`
}

// EnsureTable creates the region table unless it already exists.
func (d *Database) EnsureTable(ctx context.Context, table string) error {
	if !ValidTableName(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_tables WHERE table_name = UPPER(:1)`, table).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}

	if _, err := d.db.ExecContext(ctx, createTableSQL(table)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	logger.Log.Info().Str("table", table).Msg("created region table")
	return nil
}

// Region is one row of the region table.
type Region struct {
	Key     string
	GeoJSON string
	Area    float64
	Members int64
}

// regions converts dissolved records into table rows. Members comes from
// countField when present and defaults to 1.
func regions(c *types.Collection, key, countField string) ([]Region, error) {
	out := make([]Region, 0, len(c.Records))
	for _, r := range c.Records {
		k := types.FormatValue(r.Attrs[key])
		if k == "" {
			return nil, fmt.Errorf("record %d has an empty %s", r.Index, key)
		}
		if len(k) > 64 {
			return nil, fmt.Errorf("record %d: key %q longer than 64 bytes", r.Index, k)
		}
		b, err := geojson.EncodeGeometry(r.Geometry)
		if err != nil {
			return nil, fmt.Errorf("record %d (key %q): %w", r.Index, k, err)
		}

		members := int64(1)
		if n, ok := r.Attrs[countField].(int64); ok && countField != "" {
			members = n
		}
		out = append(out, Region{
			Key:     k,
			GeoJSON: string(b),
			Area:    planar.Area(r.Geometry),
			Members: members,
		})
	}
	return out, nil
}

// PublishRegions upserts one row per dissolved record in a single
// transaction. Either every row lands or none does.
func (d *Database) PublishRegions(ctx context.Context, table string, c *types.Collection, key, countField string) (int, error) {
	if !ValidTableName(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	rows, err := regions(c, key, countField)
	if err != nil {
		return 0, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, mergeSQL(table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare merge into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		clob := go_ora.Clob{String: r.GeoJSON, Valid: true}
		if _, err := stmt.ExecContext(ctx, r.Key, clob, r.Area, r.Members); err != nil {
			return 0, fmt.Errorf("failed to merge region %q: %w", r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit regions: %w", err)
	}
	logger.Log.Info().Str("table", table).Int("rows", len(rows)).Msg("published regions")
	return len(rows), nil
}

// LoadDatabaseConfig loads database configuration from environment variables.
// Host has no default; an empty host disables publishing.
func LoadDatabaseConfig() DBConfig {
	return DBConfig{
		Host:           getEnvOrDefault("DB_HOST", ""),
		Port:           getEnvOrDefault("DB_PORT", "1521"),
		Service:        getEnvOrDefault("DB_SERVICE", "XE"),
		Username:       getEnvOrDefault("DB_USERNAME", ""),
		Password:       getEnvOrDefault("DB_PASSWORD", ""),
		WalletLocation: getEnvOrDefault("DB_WALLET_LOCATION", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
