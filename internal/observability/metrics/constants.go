package metrics

// Pipeline stages.
const (
	OpIdentify = "identify"
	OpClassify = "classify"
	OpResolve  = "resolve"
	OpRegister = "register"
	OpValidate = "validate_name"
)

// Statuses.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusSentinel = "sentinel"
	StatusDegraded = "degraded"
	StatusMiss     = "miss"
	StatusHit      = "hit"
)
