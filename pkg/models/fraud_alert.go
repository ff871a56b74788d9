package models

import (
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/google/uuid"
)

// FraudAlert maps to table `fraud_alerts`. Immutable once written; retained
// only for windowed statistics and pruned with the order log.
type FraudAlert struct {
	ID        uuid.UUID
	OrderId   string
	Severity  pkg.Severity
	RiskScore float64
	Reason    string
	CreatedAt time.Time
}
