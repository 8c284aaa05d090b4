package models

import (
	"time"
)

// AuditLog records a mutation made through the API
type AuditLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Actor       string    `gorm:"not null;index" json:"actor"`   // X-Actor header of the request, or "system"
	Action      string    `gorm:"not null" json:"action"`        // e.g., "create_role", "attach_role"
	Resource    string    `gorm:"not null" json:"resource"`      // e.g., "role:12", "user:<uuid>"
	DetailsJSON string    `gorm:"type:text" json:"details_json"` // Additional context in JSON
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}
