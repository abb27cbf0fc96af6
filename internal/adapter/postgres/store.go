// Package postgres implements the decision store on PostgreSQL via GORM.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

// Store persists decision history and field reports. Every append is its
// own statement, so writes commit independently.
type Store struct {
	db    *gorm.DB
	clock clockwork.Clock
}

// Open connects to dsn, verifies the connection and migrates the schema.
func Open(ctx context.Context, dsn string, clock clockwork.Clock) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Store{db: db, clock: clock}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&predictionRow{}, &alertRow{}, &caseReportRow{}, &waterReportRow{}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.clock.Now().UTC()
	}
	return t.UTC()
}

func (s *Store) AppendPrediction(ctx context.Context, rec domain.PredictionRecord) (domain.PredictionRecord, error) {
	if err := rec.Validate(); err != nil {
		return domain.PredictionRecord{}, err
	}
	rec.CreatedAt = s.stamp(rec.CreatedAt)
	row := predictionToRow(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("insert prediction: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AppendAlert(ctx context.Context, alert domain.AlertRecord) (domain.AlertRecord, error) {
	alert.CreatedAt = s.stamp(alert.CreatedAt)
	row := alertToRow(alert)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.AlertRecord{}, fmt.Errorf("insert alert: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AppendCaseReport(ctx context.Context, r domain.CaseReport) (domain.CaseReport, error) {
	row := caseReportRow{
		PatientName: r.PatientName,
		Age:         r.Age,
		Village:     r.Village,
		Symptoms:    r.Symptoms,
		Severity:    r.Severity,
		CreatedAt:   s.stamp(r.CreatedAt),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.CaseReport{}, fmt.Errorf("insert case report: %w", err)
	}
	r.ID, r.CreatedAt = row.ID, row.CreatedAt
	return r, nil
}

func (s *Store) AppendWaterReport(ctx context.Context, r domain.WaterReport) (domain.WaterReport, error) {
	row := waterReportRow{
		Source:    r.Source,
		Location:  r.Location,
		PH:        r.PH,
		Turbidity: r.Turbidity,
		CreatedAt: s.stamp(r.CreatedAt),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.WaterReport{}, fmt.Errorf("insert water report: %w", err)
	}
	r.ID, r.CreatedAt = row.ID, row.CreatedAt
	return r, nil
}

// RecentPredictions returns predictions created at or after since, newest first.
func (s *Store) RecentPredictions(ctx context.Context, since time.Time) ([]domain.PredictionRecord, error) {
	var rows []predictionRow
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent predictions: %w", err)
	}
	out := make([]domain.PredictionRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) CountPredictions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&predictionRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}

func (s *Store) CountByRiskLevel(ctx context.Context, level domain.RiskLevel) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&predictionRow{}).
		Where("risk_level = ?", string(level)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count %s predictions: %w", level, err)
	}
	return n, nil
}

// RecentAlerts returns at most limit alerts, newest first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	var rows []alertRow
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent alerts: %w", err)
	}
	return alertsToDomain(rows), nil
}

// AlertsAfter returns at most limit alerts with ID greater than afterID, in
// ascending ID order.
func (s *Store) AlertsAfter(ctx context.Context, afterID uint64, limit int) ([]domain.AlertRecord, error) {
	var rows []alertRow
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query alerts after %d: %w", afterID, err)
	}
	return alertsToDomain(rows), nil
}
