package utils

type contextKey string

// Request-scoped context keys set by the HTTP layer
const (
	RequestIDKey  contextKey = "X-Request-ID"
	UserAgentKey  contextKey = "User-Agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"
	AccountIDKey  contextKey = "account_id"
)
