package models

import (
	"fmt"
	"strings"
	"time"
)

// User represents a signed-in account with its point balance and sign-in state.
//
// Implements [Model]. Fields are private; mutation goes through setters so
// repositories control identity and timestamps.
type User struct {
	id              string
	sequence        int
	email           string
	name            string
	avatarURL       string
	membership      string
	points          int
	pointsResetDate time.Time
	lastSignInDate  *time.Time
	createdAt       time.Time
	updatedAt       time.Time
	deletedAt       *time.Time
}

// NewUser constructs a User with a seeded point balance and fresh timestamps.
// The ID is assigned by the repository at insert time.
func NewUser(sequence int, email, name string, points int) *User {
	now := time.Now()
	return &User{
		sequence:        sequence,
		email:           email,
		name:            name,
		membership:      "free",
		points:          points,
		pointsResetDate: now,
		createdAt:       now,
		updatedAt:       now,
	}
}

func (u *User) ID() string           { return u.id }
func (u *User) Sequence() int        { return u.sequence }
func (u *User) Email() string        { return u.email }
func (u *User) Name() string         { return u.name }
func (u *User) AvatarURL() string    { return u.avatarURL }
func (u *User) Membership() string   { return u.membership }
func (u *User) Points() int          { return u.points }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetID(id string)            { u.id = id }
func (u *User) SetName(name string)        { u.name = name }
func (u *User) SetAvatarURL(url string)    { u.avatarURL = url }
func (u *User) SetMembership(m string)     { u.membership = m }
func (u *User) SetPoints(p int)            { u.points = p }
func (u *User) SetUpdatedAt(t time.Time)   { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time)  { u.deletedAt = t }
func (u *User) SetCreatedAt(t time.Time)   { u.createdAt = t }
func (u *User) SetResetDate(t time.Time)   { u.pointsResetDate = t }
func (u *User) SetLastSignIn(t *time.Time) { u.lastSignInDate = t }
func (u *User) SetSequence(s int)          { u.sequence = s }

// PointsResetDate returns when the daily allowance was last restored.
func (u *User) PointsResetDate() time.Time { return u.pointsResetDate }

// LastSignInDate returns the most recent sign-in bonus claim, or nil if never claimed.
func (u *User) LastSignInDate() *time.Time { return u.lastSignInDate }

// DeletedAt returns the soft-delete timestamp, or nil for live users.
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

// SignedInToday reports whether the sign-in bonus was already claimed on the
// same calendar day as now.
func (u *User) SignedInToday(now time.Time) bool {
	if u.lastSignInDate == nil {
		return false
	}
	return sameDay(*u.lastSignInDate, now)
}

// NeedsReset reports whether the daily allowance should be restored.
func (u *User) NeedsReset(now time.Time) bool {
	return !sameDay(u.pointsResetDate, now)
}

// Validate checks if the user's data is valid.
func (u *User) Validate() error {
	if strings.TrimSpace(u.email) == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(u.email, "@") {
		return fmt.Errorf("email is invalid: %s", u.email)
	}
	if strings.TrimSpace(u.name) == "" {
		return fmt.Errorf("name is required")
	}
	if u.points < 0 {
		return fmt.Errorf("points cannot be negative: %d", u.points)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
