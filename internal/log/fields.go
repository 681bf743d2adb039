package log

// Field names shared across components.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserID     = "user_id"
	FieldRuleID     = "rule_id"
	FieldExpenseID  = "expense_id"
	FieldAmount     = "amount_cents"
	FieldOccurrence = "occurrence_date"
	FieldSweepAsOf  = "sweep_as_of"
	FieldTokenID    = "token_id"
)

// Component names.
const (
	ComponentHTTP      = "http"
	ComponentSweep     = "sweep"
	ComponentScheduler = "scheduler"
	ComponentWorker    = "worker"
)
