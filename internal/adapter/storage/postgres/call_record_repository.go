package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/talkinator/internal/domain"
)

type callRecordRow struct {
	CallID       string `gorm:"primaryKey;size:64"`
	CallerNumber string `gorm:"size:64;index"`
	Gender       string `gorm:"size:1"`
	Name         string
	Stage        string `gorm:"size:32"`
	Questions    int
	ResultKind   string `gorm:"size:16"`
	ResultText   string
	HangupReason string `gorm:"size:32"`
	StartedAt    time.Time
	EndedAt      time.Time `gorm:"index"`
}

func (callRecordRow) TableName() string { return "call_records" }

func toRow(r domain.CallRecord) callRecordRow {
	return callRecordRow{
		CallID:       r.CallID,
		CallerNumber: r.CallerNumber,
		Gender:       string(r.Gender),
		Name:         r.Name,
		Stage:        string(r.Stage),
		Questions:    r.Questions,
		ResultKind:   r.ResultKind,
		ResultText:   r.ResultText,
		HangupReason: r.HangupReason,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
	}
}

func (row callRecordRow) record() *domain.CallRecord {
	return &domain.CallRecord{
		CallID:       row.CallID,
		CallerNumber: row.CallerNumber,
		Gender:       domain.Gender(row.Gender),
		Name:         row.Name,
		Stage:        domain.CallStage(row.Stage),
		Questions:    row.Questions,
		ResultKind:   row.ResultKind,
		ResultText:   row.ResultText,
		HangupReason: row.HangupReason,
		StartedAt:    row.StartedAt,
		EndedAt:      row.EndedAt,
	}
}

// CallRecordRepository archives call summaries past the cache TTL
type CallRecordRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCallRecordRepository(db *gorm.DB, log *zap.Logger) *CallRecordRepository {
	return &CallRecordRepository{
		db:  db,
		log: log,
	}
}

// Save upserts by call id
func (r *CallRecordRepository) Save(ctx context.Context, record domain.CallRecord) error {
	row := toRow(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (r *CallRecordRepository) Get(ctx context.Context, callID string) (*domain.CallRecord, error) {
	var row callRecordRow
	err := r.db.WithContext(ctx).First(&row, "call_id = ?", callID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("call %s: %w", callID, domain.ErrNotFound)
		}
		return nil, err
	}
	return row.record(), nil
}

// Ping checks the database connection for readiness probes
func (r *CallRecordRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
