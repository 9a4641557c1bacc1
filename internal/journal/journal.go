// Package journal persists operational history to Postgres: completed
// and in-progress scans, tracking-profile uploads, and axis-limit
// discoveries. The journal is strictly an observer -- nothing in the
// poll loop waits on it, and a site without a database disables it in
// journal.cfg and loses only the history, never control.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps the journal database connection with helper methods.
type DB struct {
	*sql.DB
	config config.JournalConfig
}

// Connect establishes a connection to the journal database.
func Connect(cfg config.JournalConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	return &DB{DB: sqlDB, config: cfg}, nil
}

// InitSchema creates or updates the journal schema. Called once at
// daemon startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// RecordScan inserts one scan row and returns its id for later
// correlation with profile uploads.
func (db *DB) RecordScan(ctx context.Context, scan teltypes.Scan) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO scans (id, target_name, ra_rad, dec_rad, filter, start_jd, end_jd, ra_offset_rad, dec_offset_rad)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, scan.Target.Name, scan.Target.RA, scan.Target.Dec, scan.Filter,
		scan.StartJD, scan.EndJD, scan.RAOffset, scan.DecOffset,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record scan: %w", err)
	}
	return id, nil
}

// RecordProfileUpload inserts one tracking-profile upload event.
// scanID may be uuid.Nil when tracking was commanded outside a scan.
func (db *DB) RecordProfileUpload(ctx context.Context, scanID uuid.UUID, axis string, origin time.Time, samples int, stepMS int64) (uuid.UUID, error) {
	id := uuid.New()
	var scanRef interface{}
	if scanID != uuid.Nil {
		scanRef = scanID
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO profile_uploads (id, scan_id, axis, origin, samples, step_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, scanRef, axis, origin.UTC(), samples, stepMS,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record profile upload: %w", err)
	}
	return id, nil
}

// RecordLimitDiscovery inserts the result of one successful limit
// search, the same values the mount writes back to home.cfg.
func (db *DB) RecordLimitDiscovery(ctx context.Context, axis string, negLim, posLim float64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO limit_discoveries (id, axis, neg_lim_rad, pos_lim_rad)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), axis, negLim, posLim,
	)
	if err != nil {
		return fmt.Errorf("failed to record limit discovery: %w", err)
	}
	return nil
}

// CleanupOldData removes scan and profile-upload rows older than
// maxAge; limit-discovery rows are kept. Should be
// called periodically to prevent unbounded growth.
func (db *DB) CleanupOldData(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)

	if _, err := db.ExecContext(ctx,
		`DELETE FROM profile_uploads WHERE recorded_at < $1`, cutoff,
	); err != nil {
		return fmt.Errorf("failed to delete old profile uploads: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`DELETE FROM scans WHERE recorded_at < $1`, cutoff,
	); err != nil {
		return fmt.Errorf("failed to delete old scans: %w", err)
	}
	return nil
}

// GetStats returns the row count of each journal table.
func (db *DB) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var scanCount int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scans`,
	).Scan(&scanCount); err != nil {
		return nil, err
	}
	stats["scans"] = scanCount

	var uploadCount int64
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profile_uploads`,
	).Scan(&uploadCount); err != nil {
		return nil, err
	}
	stats["profile_uploads"] = uploadCount

	var limitCount int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM limit_discoveries`,
	).Scan(&limitCount); err != nil {
		return nil, err
	}
	stats["limit_discoveries"] = limitCount

	return stats, nil
}
