// Package session owns authentication sessions: the opaque credential bundle
// issued at login, its persisted record, and the two retention tiers that
// implement "remember me".
package session

import (
	"time"

	"github.com/google/uuid"
)

// Tier names one of the two persistence tiers a session record can live in.
// At most one tier holds a live record for a given key at a time.
type Tier string

const (
	// TierDurable survives for seven days from issuance. Chosen when the
	// user opts into extended retention ("remember me").
	TierDurable Tier = "durable"
	// TierEphemeral is the default tier with a fifteen-minute validity
	// window from issuance.
	TierEphemeral Tier = "ephemeral"
)

// Session is the time-bounded proof of authentication issued at login.
type Session struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Token       string    `json:"token"`
	RememberMe  bool      `json:"remember_me"`
	DeviceLabel string    `json:"device_label,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Record is the persisted session form. ExpiresAt duplicates the session
// expiry as epoch milliseconds so expiry can be checked without decoding the
// inner session.
type Record struct {
	Session   Session `json:"session"`
	ExpiresAt int64   `json:"expires_at"`
}

// NewRecord builds a record whose outer expiry mirrors the session expiry.
func NewRecord(s Session) Record {
	return Record{Session: s, ExpiresAt: s.ExpiresAt.UnixMilli()}
}

// Expired reports whether the record's validity window has passed. Expiry is
// lazy: it is checked at read time, never by a background timer.
func (r Record) Expired(now time.Time) bool {
	return now.UnixMilli() >= r.ExpiresAt
}
