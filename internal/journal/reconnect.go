package journal

import (
	"context"
	"log"
	"time"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/retry"
)

// ReconnectWithRetry attempts to (re)connect to the journal database
// with exponential backoff, giving up after the retry budget so a dead
// database can never hold up daemon startup indefinitely.
func ReconnectWithRetry(ctx context.Context, cfg config.JournalConfig) (*DB, error) {
	var db *DB
	err := retry.WithBackoff(ctx, retry.Config{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}, func() error {
		d, err := Connect(cfg)
		if err != nil {
			log.Printf("journal connection failed: %v", err)
			return err
		}
		db = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureConnection checks that db is alive and reconnects if needed.
func EnsureConnection(ctx context.Context, db *DB, cfg config.JournalConfig) (*DB, error) {
	if db == nil {
		return ReconnectWithRetry(ctx, cfg)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		log.Printf("journal connection lost: %v", err)
		db.Close()
		return ReconnectWithRetry(ctx, cfg)
	}
	return db, nil
}

// HealthCheck reports whether the journal database is reachable and
// answering queries.
func HealthCheck(db *DB) bool {
	if db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Printf("journal health check failed - ping error: %v", err)
		return false
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		log.Printf("journal health check failed - query error: %v", err)
		return false
	}
	return result == 1
}
