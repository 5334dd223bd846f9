// Package history persists completed workouts to a local SQLite database and
// exports them as FIT activity files.
package history

import (
	"fmt"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Tolabmc/RunTracker/internal/workout"
)

// SessionRecord is one finished workout.
type SessionRecord struct {
	ID            uint   `gorm:"primaryKey"`
	Mode          string // interval plan name, e.g. "4x500m"
	TotalLaps     uint8
	CompletedLaps uint8
	TotalTimeMs   uint32
	CreatedAt     time.Time
	Laps          []LapRow `gorm:"foreignKey:SessionID"`
}

// LapRow is one recorded lap of a session.
type LapRow struct {
	ID          uint `gorm:"primaryKey"`
	SessionID   uint `gorm:"index"`
	LapNumber   uint8
	LapTimeMs   uint32
	SplitTimeMs uint32
}

// Service encapsulates all database operations. It implements the
// coordinator's Recorder interface, so every ended workout lands here.
type Service struct {
	db     *gorm.DB
	logger *log.Logger
}

// NewService opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an ephemeral database.
func NewService(dbPath string, logger *log.Logger) (*Service, error) {
	if logger == nil {
		panic("History: logger cannot be nil")
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.AutoMigrate(&SessionRecord{}, &LapRow{}); err != nil {
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	logger.Printf("History: database ready at %s", dbPath)
	return &Service{db: db, logger: logger}, nil
}

// SessionCompleted stores the final snapshot of an ended workout. Called from
// the coordinator on completion or stop.
func (s *Service) SessionCompleted(snap workout.Snapshot) {
	rec := SessionRecord{
		Mode:          snap.Config.Mode.String(),
		TotalLaps:     snap.Config.TotalLaps,
		CompletedLaps: uint8(len(snap.Laps)),
		TotalTimeMs:   snap.ElapsedMs,
	}
	for _, lap := range snap.Laps {
		rec.Laps = append(rec.Laps, LapRow{
			LapNumber:   lap.LapNumber,
			LapTimeMs:   lap.LapTimeMs,
			SplitTimeMs: lap.SplitTimeMs,
		})
	}

	if err := s.db.Create(&rec).Error; err != nil {
		s.logger.Printf("History: failed to save session: %v", err)
		return
	}
	s.logger.Printf("History: saved session %d (%s, %d/%d laps)",
		rec.ID, rec.Mode, rec.CompletedLaps, rec.TotalLaps)
}

// RecentSessions returns the most recent sessions with their laps, newest
// first.
func (s *Service) RecentSessions(limit int) ([]SessionRecord, error) {
	var sessions []SessionRecord
	err := s.db.Preload("Laps").Order("created_at desc").Limit(limit).Find(&sessions).Error
	return sessions, err
}

// TotalWorkoutTimeMs returns the time accumulated across all sessions.
func (s *Service) TotalWorkoutTimeMs() uint64 {
	var total *uint64
	if err := s.db.Model(&SessionRecord{}).Select("sum(total_time_ms)").Scan(&total).Error; err != nil || total == nil {
		return 0
	}
	return *total
}

// Close releases the database handle.
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
