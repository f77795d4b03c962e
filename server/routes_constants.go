package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth handshake
	RouteAuthorize = "/authorize"
	RouteCallback  = "/callback"
	RouteToken     = "/token"
	RouteRevoke    = "/revoke"

	// The handshake is also served under this prefix, which is what the GPT
	// action configuration points at
	RouteOAuthPrefix = "/oauth"

	// Pass-through to the main app, bearer token required
	RouteAPIProxy = "/api/{path...}"

	// Operations
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
)
