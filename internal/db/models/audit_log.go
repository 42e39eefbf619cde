package models

import "time"

// AuditLog is an append-only record of a security-relevant user action
type AuditLog struct {
	ID        string                 `json:"id"`
	UserID    *string                `json:"user_id"`
	Action    string                 `json:"action"` // "POST /api/v1/tokens"
	IPAddress *string                `json:"ip_address"`
	UserAgent *string                `json:"user_agent"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}
