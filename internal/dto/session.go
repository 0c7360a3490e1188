package dto

import "github.com/google/uuid"

// Session carries the caller's identity into every service call. It replaces
// per-request ambient lookups: handlers build it from verified token claims.
type Session struct {
	OrgID  uuid.UUID
	UserID uuid.UUID
	Role   string
}
