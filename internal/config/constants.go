package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Store ping timeout for startup checks
const DBPingTimeout = 5 * time.Second

// Upper bound for a single reconciliation run
const ReconcileJobTimeout = 2 * time.Minute

// Live session defaults
const (
	DefaultMaxParticipants = 100
	DefaultSessionImage    = "/images/live-class.jpg"
)

// Enroll/unenroll rate limit window
const EnrollRateLimitWindow = time.Minute
