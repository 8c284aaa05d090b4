package audit

import (
	"encoding/json"
	"time"

	"github.com/nebari-dev/rolestore/internal/models"
	"gorm.io/gorm"
)

// SystemActor is recorded when a request does not name its author
const SystemActor = "system"

// LogAction records an audit log entry
func LogAction(db *gorm.DB, actor, action, resource string, details interface{}) error {
	entry := newEntry(actor, action, resource, details)
	return db.Create(&entry).Error
}

func newEntry(actor, action, resource string, details interface{}) models.AuditLog {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	if actor == "" {
		actor = SystemActor
	}

	return models.AuditLog{
		Actor:       actor,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now().UTC(),
	}
}

// Audit actions constants
const (
	ActionCreateRole = "create_role"
	ActionUpdateRole = "update_role"
	ActionDeleteRole = "delete_role"
	ActionAttachRole = "attach_role"
	ActionCreateUser = "create_user"
)
