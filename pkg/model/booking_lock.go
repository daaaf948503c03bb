package model

import "time"

// BookingLock is a short-lived advisory lock keyed by (region, date),
// taken while a confirmation allocates a setup. The unique _id plus a TTL
// index keeps concurrent confirmations from double-allocating without a
// distributed coordinator.
type BookingLock struct {
	ID        string    `json:"id" bson:"_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}
