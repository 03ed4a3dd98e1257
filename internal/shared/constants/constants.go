package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderAuthorization   = "Authorization"
	HeaderXRequestID      = "X-Request-ID"
	HeaderStripeSignature = "Stripe-Signature"
	HeaderTokenEstimate   = "X-Token-Estimate"

	// Context keys
	ContextKeyUserID     = "user_id"
	ContextKeyUserEmail  = "user_email"
	ContextKeyUserRole   = "user_role"
	ContextKeyRequestID  = "request_id"
	ContextKeyQuotaCheck = "quota_check"

	// Cookie carrying the access token when the browser does not send a bearer header
	AccessTokenCookie = "access_token"

	// Database table names
	TablePlans         = "plans"
	TableSubscriptions = "subscriptions"
	TablePayments      = "payments"
	TableUsageLedger   = "usage_ledger"
	TableWebhookEvents = "webhook_events"

	// Roles
	RoleUser  = "user"
	RoleAdmin = "admin"

	// Usage operations
	OperationFeatureGeneration = "feature_generation"

	// Default currency for payments when the provider omits it
	DefaultCurrency = "BRL"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgUnauthorized        = "Unauthorized access"
	ErrMsgForbidden           = "Access forbidden"
)
