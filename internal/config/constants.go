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

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const ReminderJobInterval = time.Minute

// WebSocket connection settings
const (
	WSWriteTimeout   = 10 * time.Second
	WSPongTimeout    = 60 * time.Second
	WSPingInterval   = 30 * time.Second
	WSSendBufferSize = 64
	WSMaxMessageSize = 64 * 1024
)

// Chat message content limit
const MaxChatContentLength = 4000
