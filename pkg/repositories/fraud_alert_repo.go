package repositories

import (
	"context"
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/database"
	"github.com/astroshop/fraud-detection/pkg/models"
	"github.com/astroshop/fraud-detection/pkg/views"
	"go.uber.org/zap"
)

type FraudAlertRepository interface {
	Insert(ctx context.Context, alert models.FraudAlert) error
	// StatsSince aggregates per-severity counts and the mean risk score for
	// alerts created at or after `since`. Pure read.
	StatsSince(ctx context.Context, since time.Time) (views.AlertStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type FraudAlertRepositoryImpl struct {
	logger *zap.Logger
	db     *database.DB
}

func NewFraudAlertRepository(logger *zap.Logger, db *database.DB) FraudAlertRepository {
	return &FraudAlertRepositoryImpl{logger: logger, db: db}
}

func (r *FraudAlertRepositoryImpl) Insert(ctx context.Context, alert models.FraudAlert) error {
	_, err := r.db.Exec(ctx, `
				INSERT INTO fraud_alerts (id, order_id, severity, risk_score, reason, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
		alert.ID,
		alert.OrderId,
		alert.Severity,
		alert.RiskScore,
		alert.Reason,
		alert.CreatedAt,
	)
	if err != nil {
		return pkg.HandleSQLError(r.logger, err)
	}
	return nil
}

func (r *FraudAlertRepositoryImpl) StatsSince(ctx context.Context, since time.Time) (views.AlertStats, error) {
	stats := views.AlertStats{BySeverity: make(map[pkg.Severity]int64)}

	rows, err := r.db.Query(ctx, `
				SELECT severity, count(*), avg(risk_score)
				FROM fraud_alerts
				WHERE created_at >= $1
				GROUP BY severity`, since)
	if err != nil {
		return stats, pkg.HandleSQLError(r.logger, err)
	}
	defer rows.Close()

	var scoreSum float64
	for rows.Next() {
		var severity pkg.Severity
		var count int64
		var mean float64
		if err = rows.Scan(&severity, &count, &mean); err != nil {
			return stats, pkg.HandleSQLError(r.logger, err)
		}
		stats.BySeverity[severity] = count
		stats.Total += count
		scoreSum += mean * float64(count)
	}
	if err = rows.Err(); err != nil {
		return stats, pkg.HandleSQLError(r.logger, err)
	}
	if stats.Total > 0 {
		stats.MeanRiskScore = scoreSum / float64(stats.Total)
	}
	return stats, nil
}

func (r *FraudAlertRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM fraud_alerts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, pkg.HandleSQLError(r.logger, err)
	}
	return tag.RowsAffected(), nil
}
