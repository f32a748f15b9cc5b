package model

import "time"

// BookingLock is an advisory lock held on a listing while an admission runs.
// Stale locks are removed by a TTL index on expires_at.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
