package metrics

const Namespace = "gatekeeper"

const (
	AuthOutcomeSuccess      = "success"
	AuthOutcomeMissingCode  = "missing_code"
	AuthOutcomeUpstreamFail = "upstream_error"
	AuthOutcomeBadResponse  = "bad_response"
	AuthOutcomeSessionWrite = "session_write_error"
)

const (
	GateDecisionAllow    = "allow"
	GateDecisionRedirect = "redirect"
	GateDecisionExempt   = "exempt"
)

const (
	EgressOutcomeForwarded    = "forwarded"
	EgressOutcomeUnauthorized = "unauthorized"
	EgressOutcomeRateLimited  = "rate_limited"
	EgressOutcomeBadGateway   = "bad_gateway"
	EgressOutcomeBadMethod    = "method_not_allowed"
	EgressOutcomeInvalidPath  = "invalid_path"
)
