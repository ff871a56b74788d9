package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/models"
	"github.com/astroshop/fraud-detection/pkg/repositories"
	"github.com/astroshop/fraud-detection/pkg/views"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FraudAnalyticsEngine evaluates heuristic rules against each order and
// persists a scored alert when the total crosses the threshold.
type FraudAnalyticsEngine interface {
	// AnalyzeOrder returns nil when the order scores below the alert
	// threshold; that is the common case, not an error.
	AnalyzeOrder(ctx context.Context, order views.Order) (*models.FraudAlert, error)
	// GetAlertStats aggregates alert counts per severity and the mean risk
	// score over the trailing window. Pure read.
	GetAlertStats(ctx context.Context, windowHours int) (views.AlertStats, error)
}

// Rule weights. Rules within a capping class are mutually exclusive and the
// class contributes its maximum; classes and additive rules sum. The total
// is capped at MaxRiskScore.
//
//	value class (max):    total >= 10000 -> 50, >= 5000 -> 35, >= 1000 -> 15
//	quantity class (max): any line qty >= 50 -> 40, >= 10 -> 25
//	additive:             country mismatch +30, missing billing country +20,
//	                      repeat orderId within 60s +30, line/total gap > 20% +20
const (
	AlertThreshold = 50.0
	MaxRiskScore   = 100.0

	scoreMedium   = 50.0
	scoreHigh     = 70.0
	scoreCritical = 90.0

	valueHighCutoff = 10000.0
	valueMidCutoff  = 5000.0
	valueLowCutoff  = 1000.0
	ruleValueHigh   = 50.0
	ruleValueMid    = 35.0
	ruleValueLow    = 15.0

	qtyExtremeCutoff = 50
	qtyHighCutoff    = 10
	ruleQtyExtreme   = 40.0
	ruleQtyHigh      = 25.0

	ruleCountryMismatch = 30.0
	ruleCountryMissing  = 20.0

	ruleRapidRepeat   = 30.0
	repeatOrderWindow = 60 * time.Second

	ruleTotalMismatch      = 20.0
	totalMismatchTolerance = 0.20

	recentOrderLimit = 4096
)

type FraudEngineConfig struct {
	Logger    *zap.Logger
	AlertRepo repositories.FraudAlertRepository
	Now       func() time.Time // defaults to time.Now
}

type FraudEngineImpl struct {
	logger    *zap.Logger
	alertRepo repositories.FraudAlertRepository
	now       func() time.Time

	mu     sync.Mutex
	recent map[string]time.Time // orderId -> last seen
}

func NewFraudAnalyticsEngine(cfg FraudEngineConfig) FraudAnalyticsEngine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &FraudEngineImpl{
		logger:    cfg.Logger,
		alertRepo: cfg.AlertRepo,
		now:       now,
		recent:    make(map[string]time.Time),
	}
}

func (e *FraudEngineImpl) AnalyzeOrder(ctx context.Context, order views.Order) (*models.FraudAlert, error) {
	score, reasons := e.scoreOrder(order)
	if score < AlertThreshold {
		return nil, nil
	}

	alert := models.FraudAlert{
		ID:        uuid.New(),
		OrderId:   order.OrderId,
		Severity:  severityForScore(score),
		RiskScore: score,
		Reason:    strings.Join(reasons, "; "),
		CreatedAt: e.now(),
	}
	if err := e.alertRepo.Insert(ctx, alert); err != nil {
		return nil, err
	}
	observability.AlertsRaised.WithLabelValues(string(alert.Severity)).Inc()
	return &alert, nil
}

// scoreOrder is deterministic for identical order content; the only state it
// touches is the recent-order map feeding the repeat rule.
func (e *FraudEngineImpl) scoreOrder(order views.Order) (float64, []string) {
	var score float64
	var reasons []string

	// value class
	switch {
	case order.TotalAmount >= valueHighCutoff:
		score += ruleValueHigh
		reasons = append(reasons, fmt.Sprintf("order total %.2f exceeds %.0f", order.TotalAmount, valueHighCutoff))
	case order.TotalAmount >= valueMidCutoff:
		score += ruleValueMid
		reasons = append(reasons, fmt.Sprintf("order total %.2f exceeds %.0f", order.TotalAmount, valueMidCutoff))
	case order.TotalAmount >= valueLowCutoff:
		score += ruleValueLow
		reasons = append(reasons, fmt.Sprintf("order total %.2f exceeds %.0f", order.TotalAmount, valueLowCutoff))
	}

	// quantity class
	maxQty := order.MaxItemQuantity()
	switch {
	case maxQty >= qtyExtremeCutoff:
		score += ruleQtyExtreme
		reasons = append(reasons, fmt.Sprintf("line quantity %d at or above %d", maxQty, qtyExtremeCutoff))
	case maxQty >= qtyHighCutoff:
		score += ruleQtyHigh
		reasons = append(reasons, fmt.Sprintf("line quantity %d at or above %d", maxQty, qtyHighCutoff))
	}

	// country checks
	billing := order.BillingAddress.Country
	shipping := order.ShippingAddress.Country
	if billing == "" {
		score += ruleCountryMissing
		reasons = append(reasons, "billing country missing")
	} else if shipping != "" && billing != shipping {
		score += ruleCountryMismatch
		reasons = append(reasons, fmt.Sprintf("shipping country %s does not match billing country %s", shipping, billing))
	}

	// rapid repeat
	if e.seenRecently(order.OrderId) {
		score += ruleRapidRepeat
		reasons = append(reasons, fmt.Sprintf("repeat of order %s within %s", order.OrderId, repeatOrderWindow))
	}

	// line/total consistency
	if order.TotalAmount > 0 {
		gap := math.Abs(order.LineTotal() - order.TotalAmount)
		if gap > order.TotalAmount*totalMismatchTolerance {
			score += ruleTotalMismatch
			reasons = append(reasons, fmt.Sprintf("line total %.2f deviates from order total %.2f", order.LineTotal(), order.TotalAmount))
		}
	}

	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	return score, reasons
}

// seenRecently records the orderId and reports whether it was already seen
// within the repeat window.
func (e *FraudEngineImpl) seenRecently(orderId string) bool {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	last, seen := e.recent[orderId]
	e.recent[orderId] = now

	if len(e.recent) > recentOrderLimit {
		for id, ts := range e.recent {
			if now.Sub(ts) > repeatOrderWindow {
				delete(e.recent, id)
			}
		}
	}
	return seen && now.Sub(last) <= repeatOrderWindow
}

func (e *FraudEngineImpl) GetAlertStats(ctx context.Context, windowHours int) (views.AlertStats, error) {
	since := e.now().Add(-time.Duration(windowHours) * time.Hour)
	stats, err := e.alertRepo.StatsSince(ctx, since)
	if err != nil {
		return views.AlertStats{}, err
	}
	stats.WindowHours = windowHours
	return stats, nil
}

func severityForScore(score float64) pkg.Severity {
	switch {
	case score >= scoreCritical:
		return pkg.SeverityCritical
	case score >= scoreHigh:
		return pkg.SeverityHigh
	default:
		return pkg.SeverityMedium
	}
}
