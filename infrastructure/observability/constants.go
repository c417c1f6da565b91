package observability

// Metric name prefixes
const (
	MetricPrefix = "interest_accrual"
)

// Metric names
const (
	// Account metrics
	AccountsEvaluatedTotal = MetricPrefix + ".accounts.evaluated_total"

	// Interest metrics
	InterestAccruedAmount = MetricPrefix + ".interest.accrued_amount"

	// Run metrics
	RunsTotal   = MetricPrefix + ".runs.total"
	RunDuration = MetricPrefix + ".runs.duration"
)

// Label keys
const (
	LabelStatus  = "status"
	LabelOutcome = "outcome"
)
