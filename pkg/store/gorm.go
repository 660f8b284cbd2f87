package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/db"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/glebarez/sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// OpenGorm opens a relational database for driver. An empty driver means
// SQLite, where dsn is a file path.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		cfg, err := gomysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dialector = mysql.Open(cfg.FormatDSN())
	case DriverPostgres:
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: conn})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName(driver), err)
	}
	if driverName(driver) == DriverSQLite {
		// SQLite allows a single writer.
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

func driverName(d string) string {
	if d == "" {
		return DriverSQLite
	}
	return d
}

// Gorm is the relational backend.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(gdb *gorm.DB) *Gorm {
	return &Gorm{db: gdb}
}

// AutoMigrate creates database tables
func (s *Gorm) AutoMigrate() error {
	return s.db.AutoMigrate(&db.Document{}, &db.UserMetrics{})
}

func (s *Gorm) Get(ctx context.Context, collection, userID string) ([]byte, bool, error) {
	var doc db.Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND user_id = ?", collection, userID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", collection, err)
	}
	return doc.Body, true, nil
}

func (s *Gorm) Put(ctx context.Context, collection, userID string, body []byte) error {
	doc := db.Document{Collection: collection, UserID: userID, Body: body}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", collection, err)
	}
	return nil
}

func (s *Gorm) RecordUsage(ctx context.Context, userID string, u models.Usage, at time.Time) error {
	row := db.UserMetrics{
		UserID:             userID,
		TotalInputTokens:   u.InputTokens,
		TotalOutputTokens:  u.OutputTokens,
		TotalRequests:      1,
		LastInputTokens:    u.InputTokens,
		LastOutputTokens:   u.OutputTokens,
		LastUpdated:        at,
		FirstInteractionAt: at,
	}
	t := row.TableName()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_input_tokens":  gorm.Expr(t+".total_input_tokens + ?", u.InputTokens),
			"total_output_tokens": gorm.Expr(t+".total_output_tokens + ?", u.OutputTokens),
			"total_requests":      gorm.Expr(t + ".total_requests + 1"),
			"last_input_tokens":   u.InputTokens,
			"last_output_tokens":  u.OutputTokens,
			"last_updated":        at,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *Gorm) Usage(ctx context.Context, userID string) (models.UserMetrics, bool, error) {
	var row db.UserMetrics
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserMetrics{}, false, nil
	}
	if err != nil {
		return models.UserMetrics{}, false, fmt.Errorf("get usage: %w", err)
	}
	last, first := row.LastUpdated, row.FirstInteractionAt
	return models.UserMetrics{
		UserID:             row.UserID,
		TotalInputTokens:   row.TotalInputTokens,
		TotalOutputTokens:  row.TotalOutputTokens,
		TotalRequests:      row.TotalRequests,
		LastInputTokens:    row.LastInputTokens,
		LastOutputTokens:   row.LastOutputTokens,
		LastUpdated:        &last,
		FirstInteractionAt: &first,
	}, true, nil
}

func (s *Gorm) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
