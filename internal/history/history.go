// Package history keeps a queryable adherence log in SQLite,
// alongside the live documents in the KV store.
package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
)

// DoseEvent is one confirmed dose, kept for adherence reporting.
type DoseEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Date       string    `gorm:"index" json:"date"`
	MedicineID string    `gorm:"index" json:"medicineId"`
	Name       string    `json:"name"`
	DoseText   string    `json:"dose"`
	Time       string    `json:"time"`
	TakenAt    time.Time `json:"takenAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DaySummary aggregates one day of the adherence log.
type DaySummary struct {
	Date  string `json:"date"`
	Taken int    `json:"taken"`
}

// History is the adherence log.
type History struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New opens the adherence database under the configured data dir.
func New(cfg *config.Config, log *zap.Logger) (*History, error) {
	path := cfg.Storage.SQLitePath
	if path == "" {
		path = filepath.Join(cfg.Storage.DataDir, "history.db")
	}
	return Open(path, log)
}

// Open opens the adherence database at an explicit path.
func Open(path string, log *zap.Logger) (*History, error) {
	sqliteDB, err := sql.Open("sqlite", path+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqliteDB.SetMaxOpenConns(4)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&DoseEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &History{db: db, logger: log}, nil
}

// Record appends one confirmed dose.
func (h *History) Record(ev reminder.TakenEvent) error {
	return h.db.Create(&DoseEvent{
		Date:       ev.Date,
		MedicineID: ev.MedicineID,
		Name:       ev.Name,
		DoseText:   ev.DoseText,
		Time:       ev.Time,
		TakenAt:    ev.TakenAt,
	}).Error
}

// Observer adapts Record into a non-blocking engine observer. The
// write happens on its own goroutine; a failed write is logged and
// otherwise dropped so the reminder flow never stalls on reporting.
func (h *History) Observer() reminder.TakenObserver {
	return func(ev reminder.TakenEvent) {
		go func() {
			if err := h.Record(ev); err != nil {
				h.logger.Warn("failed to record dose event",
					zap.String("date", ev.Date),
					zap.String("medicine", ev.MedicineID),
					zap.Error(err),
				)
			}
		}()
	}
}

// EventsForDate returns the confirmed doses of one day, oldest first.
func (h *History) EventsForDate(date string) ([]DoseEvent, error) {
	var events []DoseEvent
	err := h.db.Where("date = ?", date).Order("taken_at ASC").Find(&events).Error
	return events, err
}

// Recent returns the most recent confirmed doses.
func (h *History) Recent(limit int) ([]DoseEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []DoseEvent
	err := h.db.Order("taken_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

// Range returns the confirmed doses between two dates, inclusive.
func (h *History) Range(from, to string) ([]DoseEvent, error) {
	var events []DoseEvent
	err := h.db.Where("date >= ? AND date <= ?", from, to).
		Order("date ASC, time ASC").
		Find(&events).Error
	return events, err
}

// Summary aggregates taken counts per day between two dates.
func (h *History) Summary(from, to string) ([]DaySummary, error) {
	var out []DaySummary
	err := h.db.Model(&DoseEvent{}).
		Select("date, count(*) as taken").
		Where("date >= ? AND date <= ?", from, to).
		Group("date").
		Order("date ASC").
		Scan(&out).Error
	return out, err
}

// AdherenceRate returns taken doses over expected doses for a date
// range, as a percentage. Expected is doses per day times the number
// of days covered.
func (h *History) AdherenceRate(from, to string, dosesPerDay, days int) (float64, error) {
	expected := dosesPerDay * days
	if expected <= 0 {
		return 0, nil
	}

	var taken int64
	err := h.db.Model(&DoseEvent{}).
		Where("date >= ? AND date <= ?", from, to).
		Count(&taken).Error
	if err != nil {
		return 0, err
	}

	rate := float64(taken) / float64(expected) * 100
	if rate > 100 {
		rate = 100
	}
	return rate, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
