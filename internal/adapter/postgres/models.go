package postgres

import (
	"time"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

type predictionRow struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	CorrelationID string    `gorm:"column:correlation_id;index"`
	State         string    `gorm:"column:state;not null"`
	Month         int       `gorm:"column:month;not null"`
	Rainfall      float64   `gorm:"column:rainfall;not null"`
	PH            float64   `gorm:"column:ph;not null"`
	BOD           float64   `gorm:"column:bod;not null"`
	Nitrate       float64   `gorm:"column:nitrate;not null"`
	Temp          float64   `gorm:"column:temp;not null"`
	RiskLevel     string    `gorm:"column:risk_level;not null;index;check:chk_predictions_risk_level,risk_level IN ('LOW','MODERATE','HIGH')"`
	Probability   float64   `gorm:"column:probability;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index"`
}

func (predictionRow) TableName() string { return "predictions" }

type alertRow struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	CorrelationID string    `gorm:"column:correlation_id;index"`
	State         string    `gorm:"column:state;not null"`
	Message       string    `gorm:"column:message;not null"`
	RiskLevel     string    `gorm:"column:risk_level;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index"`
}

func (alertRow) TableName() string { return "alerts" }

type caseReportRow struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	PatientName string    `gorm:"column:patient_name"`
	Age         int       `gorm:"column:age"`
	Village     string    `gorm:"column:village"`
	Symptoms    string    `gorm:"column:symptoms"`
	Severity    string    `gorm:"column:severity"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (caseReportRow) TableName() string { return "case_reports" }

type waterReportRow struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Source    string    `gorm:"column:source"`
	Location  string    `gorm:"column:location"`
	PH        float64   `gorm:"column:ph"`
	Turbidity float64   `gorm:"column:turbidity"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (waterReportRow) TableName() string { return "water_reports" }

func predictionToRow(p domain.PredictionRecord) predictionRow {
	return predictionRow{
		CorrelationID: p.CorrelationID,
		State:         p.State,
		Month:         p.Month,
		Rainfall:      p.Rainfall,
		PH:            p.PH,
		BOD:           p.BOD,
		Nitrate:       p.Nitrate,
		Temp:          p.Temp,
		RiskLevel:     string(p.RiskLevel),
		Probability:   p.Probability,
		CreatedAt:     p.CreatedAt,
	}
}

func (r predictionRow) toDomain() domain.PredictionRecord {
	return domain.PredictionRecord{
		ID:            r.ID,
		CorrelationID: r.CorrelationID,
		State:         r.State,
		Month:         r.Month,
		Rainfall:      r.Rainfall,
		PH:            r.PH,
		BOD:           r.BOD,
		Nitrate:       r.Nitrate,
		Temp:          r.Temp,
		RiskLevel:     domain.RiskLevel(r.RiskLevel),
		Probability:   r.Probability,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

func alertToRow(a domain.AlertRecord) alertRow {
	return alertRow{
		CorrelationID: a.CorrelationID,
		State:         a.State,
		Message:       a.Message,
		RiskLevel:     string(a.RiskLevel),
		CreatedAt:     a.CreatedAt,
	}
}

func (r alertRow) toDomain() domain.AlertRecord {
	return domain.AlertRecord{
		ID:            r.ID,
		CorrelationID: r.CorrelationID,
		State:         r.State,
		Message:       r.Message,
		RiskLevel:     domain.RiskLevel(r.RiskLevel),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

func alertsToDomain(rows []alertRow) []domain.AlertRecord {
	out := make([]domain.AlertRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
