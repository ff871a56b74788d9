package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/models"
	"github.com/astroshop/fraud-detection/pkg/views"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var engineNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newEngine(repo *fakeAlertRepo) services.FraudAnalyticsEngine {
	return services.NewFraudAnalyticsEngine(services.FraudEngineConfig{
		Logger:    zap.NewNop(),
		AlertRepo: repo,
		Now:       func() time.Time { return engineNow },
	})
}

// consistentOrder builds an order whose line totals match totalAmount, so
// only the rules under test contribute to the score.
func consistentOrder(id string, qty int, unitPrice float64) views.Order {
	o := sampleOrder(id)
	o.Items = []views.OrderItem{{ProductId: "SKU-TELE-001", ProductName: "Professional Telescope", Quantity: qty, UnitPrice: unitPrice}}
	o.TotalAmount = float64(qty) * unitPrice
	return o
}

func TestAnalyzeOrder_BelowThresholdReturnsNil(t *testing.T) {
	repo := &fakeAlertRepo{}
	engine := newEngine(repo)

	// value 15 + quantity 25 = 40, below the alert threshold
	order := consistentOrder("order-low", 10, 100)

	alert, err := engine.AnalyzeOrder(context.Background(), order)

	assert.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, 0, repo.len())
}

func TestAnalyzeOrder_SeverityBands(t *testing.T) {
	tests := []struct {
		name     string
		order    views.Order
		score    float64
		severity pkg.Severity
	}{
		{
			// value rule only: total >= 10000 -> 50
			name:     "medium at exactly 50",
			order:    consistentOrder("order-medium", 1, 10000),
			score:    50,
			severity: pkg.SeverityMedium,
		},
		{
			// value 50 + missing billing country 20 -> 70
			name: "high at exactly 70",
			order: func() views.Order {
				o := consistentOrder("order-high", 1, 10000)
				o.BillingAddress.Country = ""
				return o
			}(),
			score:    70,
			severity: pkg.SeverityHigh,
		},
		{
			// value 50 + extreme quantity 40 -> 90
			name:     "critical at exactly 90",
			order:    consistentOrder("order-critical", 50, 200),
			score:    90,
			severity: pkg.SeverityCritical,
		},
		{
			// value 50 + country mismatch 30 -> 80
			name: "high on country mismatch",
			order: func() views.Order {
				o := consistentOrder("order-mismatch", 1, 10000)
				o.ShippingAddress.Country = "MD"
				return o
			}(),
			score:    80,
			severity: pkg.SeverityHigh,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeAlertRepo{}
			engine := newEngine(repo)

			alert, err := engine.AnalyzeOrder(context.Background(), tc.order)

			assert.NoError(t, err)
			assert.NotNil(t, alert)
			assert.Equal(t, tc.score, alert.RiskScore)
			assert.Equal(t, tc.severity, alert.Severity)
			assert.Equal(t, tc.order.OrderId, alert.OrderId)
			assert.NotEmpty(t, alert.Reason)
			assert.Equal(t, 1, repo.len())
		})
	}
}

func TestAnalyzeOrder_IsDeterministic(t *testing.T) {
	order := consistentOrder("order-det", 1, 12500)
	order.ShippingAddress.Country = "MD"

	// Fresh engines so the repeat-order rule cannot fire.
	first, err := newEngine(&fakeAlertRepo{}).AnalyzeOrder(context.Background(), order)
	assert.NoError(t, err)
	second, err := newEngine(&fakeAlertRepo{}).AnalyzeOrder(context.Background(), order)
	assert.NoError(t, err)

	assert.NotNil(t, first)
	assert.NotNil(t, second)
	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.Severity, second.Severity)
	assert.Equal(t, first.Reason, second.Reason)
}

func TestAnalyzeOrder_RapidRepeatRaisesScore(t *testing.T) {
	repo := &fakeAlertRepo{}
	engine := newEngine(repo)

	// 40 points on its own, 70 on rapid redelivery
	order := consistentOrder("order-repeat", 10, 100)

	first, err := engine.AnalyzeOrder(context.Background(), order)
	assert.NoError(t, err)
	assert.Nil(t, first)

	second, err := engine.AnalyzeOrder(context.Background(), order)
	assert.NoError(t, err)
	assert.NotNil(t, second)
	assert.Equal(t, float64(70), second.RiskScore)
	assert.Equal(t, pkg.SeverityHigh, second.Severity)
}

func TestAnalyzeOrder_TotalLineMismatchContributes(t *testing.T) {
	repo := &fakeAlertRepo{}
	engine := newEngine(repo)

	// value 35 for the 6000 total, +20 for the line/total gap -> 55 MEDIUM
	order := sampleOrder("order-gap")
	order.Items = []views.OrderItem{{ProductId: "SKU-BOOK-001", Quantity: 1, UnitPrice: 10}}
	order.TotalAmount = 6000

	alert, err := engine.AnalyzeOrder(context.Background(), order)

	assert.NoError(t, err)
	assert.NotNil(t, alert)
	assert.Equal(t, float64(55), alert.RiskScore)
	assert.Equal(t, pkg.SeverityMedium, alert.Severity)
}

func TestAnalyzeOrder_ScoreIsCappedAtHundred(t *testing.T) {
	repo := &fakeAlertRepo{}
	engine := newEngine(repo)

	// value 50 + quantity 40 + mismatch 30 before capping
	order := consistentOrder("order-capped", 60, 500)
	order.ShippingAddress.Country = "MD"

	alert, err := engine.AnalyzeOrder(context.Background(), order)

	assert.NoError(t, err)
	assert.NotNil(t, alert)
	assert.Equal(t, float64(100), alert.RiskScore)
	assert.Equal(t, pkg.SeverityCritical, alert.Severity)
}

func TestAnalyzeOrder_InsertFailurePropagates(t *testing.T) {
	repo := &fakeAlertRepo{insertErr: assert.AnError}
	engine := newEngine(repo)

	alert, err := engine.AnalyzeOrder(context.Background(), consistentOrder("order-err", 1, 10000))

	assert.Error(t, err)
	assert.Nil(t, alert)
}

func TestGetAlertStats_ExactCountsAndMean(t *testing.T) {
	repo := &fakeAlertRepo{}
	engine := newEngine(repo)

	seed := []struct {
		severity pkg.Severity
		score    float64
		age      time.Duration
	}{
		{pkg.SeverityMedium, 55, 1 * time.Hour},
		{pkg.SeverityHigh, 75, 2 * time.Hour},
		{pkg.SeverityHigh, 85, 23 * time.Hour},
		{pkg.SeverityCritical, 95, 12 * time.Hour},
		{pkg.SeverityCritical, 100, 25 * time.Hour}, // outside the 24h window
	}
	for i, s := range seed {
		err := repo.Insert(context.Background(), models.FraudAlert{
			ID:        uuid.New(),
			OrderId:   sampleOrder("seed").OrderId + string(rune('a'+i)),
			Severity:  s.severity,
			RiskScore: s.score,
			Reason:    "seeded",
			CreatedAt: engineNow.Add(-s.age),
		})
		assert.NoError(t, err)
	}

	stats, err := engine.GetAlertStats(context.Background(), 24)

	assert.NoError(t, err)
	assert.Equal(t, 24, stats.WindowHours)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.BySeverity[pkg.SeverityMedium])
	assert.Equal(t, int64(2), stats.BySeverity[pkg.SeverityHigh])
	assert.Equal(t, int64(1), stats.BySeverity[pkg.SeverityCritical])
	assert.InDelta(t, (55+75+85+95)/4.0, stats.MeanRiskScore, 0.001)
}
