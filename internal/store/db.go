package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Assessment{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAssessment inserts the assessment, assigning an ID when missing.
func (d *Database) SaveAssessment(a *Assessment) error {
	if a == nil {
		return errors.New("assessment is nil")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ExplanationJSON == "" {
		a.ExplanationJSON = "[]"
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(a).Error
}

// GetAssessment loads a single assessment. Returns gorm.ErrRecordNotFound for unknown IDs.
func (d *Database) GetAssessment(id string) (*Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var a Assessment
	if err := d.gorm.First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CountAssessments returns the number of stored assessments.
func (d *Database) CountAssessments() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Assessment{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListAssessments returns a newest-first page of assessments and the total count.
func (d *Database) ListAssessments(offset, limit int) ([]Assessment, int64, error) {
	var rows []Assessment
	var total int64
	if err := d.gorm.Model(&Assessment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := d.gorm.Model(&Assessment{}).Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// PurgeBefore deletes assessments created before the cutoff and reports how many were removed.
func (d *Database) PurgeBefore(cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Where("created_at < ?", cutoff).Delete(&Assessment{})
	return res.RowsAffected, res.Error
}
