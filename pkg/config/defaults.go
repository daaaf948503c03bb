package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "simbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Bounded linear scan horizon for next-available-date queries.
	DefaultAvailabilityHorizonDays = 120

	// Alternative dates offered when a booking request finds no capacity.
	DefaultSuggestedDatesCount = 5

	DefaultMaxParticipantsPerModule = 12

	DefaultBookingLockTTL = 10 * time.Second

	DefaultPaginationLimit = 50
)
