// Package store persists the per-user documents and token usage.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/models"
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrNotObject     = errors.New("document body must be a JSON object")
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// DefaultMongoDatabase is the database used when the options name none.
const DefaultMongoDatabase = "therapyapp"

// Documents stores one JSON object per (collection, user). Put replaces the
// fields it names and leaves no history.
type Documents interface {
	// Get returns the stored fields object and whether one exists.
	Get(ctx context.Context, collection, userID string) ([]byte, bool, error)
	// Put upserts the fields object of a user.
	Put(ctx context.Context, collection, userID string, body []byte) error
	// RecordUsage adds one completed call to the user's totals.
	RecordUsage(ctx context.Context, userID string, u models.Usage, at time.Time) error
	// Usage returns the user's totals and whether any call was recorded.
	Usage(ctx context.Context, userID string) (models.UserMetrics, bool, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver   string
	DSN      string
	Database string
	Timeout  time.Duration
}

// Open connects the configured backend and prepares its schema.
func Open(ctx context.Context, opts Options) (Documents, error) {
	switch opts.Driver {
	case "", DriverSQLite, DriverMySQL, DriverPostgres:
		gdb, err := OpenGorm(opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		s := NewGorm(gdb)
		if err := s.AutoMigrate(); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverMongo:
		return OpenMongo(ctx, opts.DSN, opts.Database, opts.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
