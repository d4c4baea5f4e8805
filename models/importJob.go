package models

import (
	"context"
	"time"

	"github.com/tomaszgubala/car-dealer/config"
)

// ImportJob is the audit row for one connector invocation inside one import
// run. Created RUNNING right before the connector fires, finalized to exactly
// one terminal state, never touched again.
type ImportJob struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Connector    string          `gorm:"size:100;not null;index" json:"connector"`
	Status       ImportJobStatus `gorm:"type:enum('RUNNING','SUCCESS','FAILED');not null" json:"status"`
	StartedAt    time.Time       `gorm:"not null" json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at"`
	NewCount     int             `gorm:"not null;default:0" json:"new_count"`
	UpdatedCount int             `gorm:"not null;default:0" json:"updated_count"`
	ErrorCount   int             `gorm:"not null;default:0" json:"error_count"`
	Errors       StringList      `gorm:"type:json" json:"errors,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func CreateImportJob(ctx context.Context, connector string) (*ImportJob, error) {
	db := config.GetDB()
	job := &ImportJob{
		Connector: connector,
		Status:    ImportJobStatusRunning,
		StartedAt: time.Now(),
	}
	if err := db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func FinalizeImportJob(ctx context.Context, jobId int, status ImportJobStatus, newCount, updatedCount int, errs []string) error {
	db := config.GetDB()
	updates := map[string]interface{}{
		"status":        status,
		"finished_at":   time.Now(),
		"new_count":     newCount,
		"updated_count": updatedCount,
		"error_count":   len(errs),
	}
	if len(errs) > 0 {
		updates["errors"] = StringList(errs)
	}
	return db.WithContext(ctx).Model(&ImportJob{}).Where("id = ?", jobId).Updates(updates).Error
}

// ListImportJobs returns the most recent jobs, optionally scoped to one
// connector, newest first.
func ListImportJobs(ctx context.Context, connector string, limit int) ([]ImportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&ImportJob{}).Order("started_at DESC").Limit(limit)
	if connector != "" {
		q = q.Where("connector = ?", connector)
	}
	var jobs []ImportJob
	err := q.Find(&jobs).Error
	return jobs, err
}
