package utils

// contextKey is a private type for request-scoped context values so keys never
// collide with other packages.
type contextKey string

// Context keys populated by the HTTP layer and read by flows and middleware.
const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"

	// UserIDKey holds the authenticated user's identifier after JWT validation
	UserIDKey contextKey = "user_id"

	// UserRoleKey holds the authenticated user's role name after JWT validation
	UserRoleKey contextKey = "user_role"
)
