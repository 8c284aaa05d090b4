package models

import (
	"time"
)

// Role is a named set of instructions a user can be attached to.
// Name uniqueness is advisory only; see store.RoleStore.ChooseName.
type Role struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	Description        *string   `json:"description"`
	CustomInstructions *string   `json:"custom_instructions"`
	CreatedBy          *string   `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
