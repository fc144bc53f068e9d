package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is a bearer-token session row. Issuance lives elsewhere; this
// service only reads sessions to authenticate requests.
type Session struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	Token     uuid.UUID  `db:"token"`
	UserAgent *string    `db:"user_agent"`
	IPAddress *string    `db:"ip_address"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}
