package models

import "time"

// InviteStatus enumerates the closed invite state machine. PENDING is the only
// non-terminal state; USED, EXPIRED and REVOKED never transition further.
type InviteStatus string

// Invite statuses.
const (
	InviteStatusPending InviteStatus = "PENDING"
	InviteStatusUsed    InviteStatus = "USED"
	InviteStatusExpired InviteStatus = "EXPIRED"
	InviteStatusRevoked InviteStatus = "REVOKED"
)

// StudentInvite is a single-use, time-limited registration capability scoped to
// one teacher. The token is stored in plaintext: it is both the bearer secret
// shared out-of-band and the uniqueness-checked lookup key. Invites are never
// deleted; terminal rows remain as an audit trail.
type StudentInvite struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	TeacherID  uint         `gorm:"index;not null" json:"teacher_id"`
	Teacher    Teacher      `json:"-"`
	Token      string       `gorm:"size:120;uniqueIndex;not null" json:"-"`
	Status     InviteStatus `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	ExpiresAt  time.Time    `gorm:"not null" json:"expires_at"`
	UsedAt     *time.Time   `json:"used_at,omitempty"`
	UsedUserID *uint        `json:"used_user_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// ExpiredAt reports whether the invite's wall-clock TTL has elapsed at the
// given instant, regardless of its persisted status.
func (i StudentInvite) ExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
