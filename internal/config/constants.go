package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout  = 60 * time.Second
	IdentityHTTPTimeout = 10 * time.Second

	// Store timeouts
	MutationTimeout      = 15 * time.Second
	FirstSnapshotTimeout = 30 * time.Second

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days

	// Shutdown timeouts
	ServerShutdownTimeout = 30 * time.Second
)

// Pagination constants
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Document store collection names
const (
	DefaultFeedbackCollection = "feedbacks"
	DefaultUserCollection     = "users"
)

// Session configuration constants
const (
	// Session settings
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	// Session name
	SessionName = "feedback-session"
)

// DefaultCORSOrigins is the dashboard dev origin, used when no CORS origins
// are configured. cors rejects a configuration with no allowed origins.
var DefaultCORSOrigins = []string{"http://localhost:3000"}

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:;"
)
