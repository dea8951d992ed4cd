package constants

import "time"

// Facade defaults
const (
	// DefaultConnectTimeout bounds the gateway handshake during login
	DefaultConnectTimeout = 30 * time.Second
	// DefaultPingTimeout bounds the wait for the Ready event after the handshake
	DefaultPingTimeout = 15 * time.Second
	// DefaultRESTTimeout is the HTTP client timeout for REST calls
	DefaultRESTTimeout = 20 * time.Second
)

// Message length limits
const (
	// MaxDiscordMessageLength is Discord's message character limit
	MaxDiscordMessageLength = 2000
)

// Request buffer defaults
const (
	// DefaultBufferQueueSize is the capacity of the request buffer queue
	DefaultBufferQueueSize = 256
	// DefaultBufferRate is the number of requests per second the buffer lets through
	DefaultBufferRate = 5
	// DefaultBufferBurst is the token bucket burst size
	DefaultBufferBurst = 5
	// DefaultBufferMaxRetries is how often a rate-limited request is retried
	DefaultBufferMaxRetries = 3
	// MaxRateLimitWait caps a single retry-after sleep
	MaxRateLimitWait = 60 * time.Second
)

// Token masking
const (
	// MinTokenLengthForMasking is the minimum token length to apply partial masking
	MinTokenLengthForMasking = 10
	// TokenMaskPrefixLength is the length of prefix to show before masking
	TokenMaskPrefixLength = 4
	// TokenMaskSuffixLength is the length of suffix to show after masking
	TokenMaskSuffixLength = 4
)

// Logging defaults
const (
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxBackups is the default number of rotated files to keep
	DefaultLogMaxBackups = 5
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
)
