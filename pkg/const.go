package pkg

// Structured log field keys.
const (
	OrderId   string = "order_id"
	RiskScore string = "risk_score"
)

// Severity is the tier assigned to a fraud alert from its risk score.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Feature flag names, resolved against the flag provider per message.
// Absent or unreachable flags evaluate to 0 (disabled).
const (
	FlagQueueProblems      = "queueProblems"
	FlagFraudDetection     = "fraudDetectionEnabled"
	FlagMutationPercentage = "orderMutationPercentage"
	FlagBadQueryPercentage = "badQueryPercentage"
)
