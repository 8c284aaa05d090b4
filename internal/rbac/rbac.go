package rbac

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

const (
	userPrefix = "user:"
	rolePrefix = "role:"
)

// Enforcer mirrors user role assignments into casbin grouping policies so
// permission checks elsewhere can resolve a user's role.
type Enforcer struct {
	e *casbin.SyncedEnforcer
}

// NewEnforcer initializes the Casbin enforcer
func NewEnforcer(db *gorm.DB, logger *slog.Logger) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	// Load model from embedded string
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	// Load policies from database
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	logger.Info("RBAC enforcer initialized")
	return &Enforcer{e: e}, nil
}

func userSubject(userID uuid.UUID) string { return userPrefix + userID.String() }

func roleSubject(roleID uint) string { return rolePrefix + strconv.FormatUint(uint64(roleID), 10) }

// AssignRole makes roleID the only role held by userID.
func (r *Enforcer) AssignRole(userID uuid.UUID, roleID uint) error {
	sub := userSubject(userID)
	if _, err := r.e.RemoveFilteredGroupingPolicy(0, sub); err != nil {
		return fmt.Errorf("failed to clear roles for %s: %w", sub, err)
	}
	if _, err := r.e.AddGroupingPolicy(sub, roleSubject(roleID)); err != nil {
		return fmt.Errorf("failed to assign role %d to %s: %w", roleID, sub, err)
	}
	return nil
}

// RemoveRole drops every assignment and policy that references roleID.
func (r *Enforcer) RemoveRole(roleID uint) error {
	if _, err := r.e.DeleteRole(roleSubject(roleID)); err != nil {
		return fmt.Errorf("failed to remove role %d: %w", roleID, err)
	}
	return nil
}

// RolesForUser returns the role ids assigned to userID.
func (r *Enforcer) RolesForUser(userID uuid.UUID) ([]uint, error) {
	subjects, err := r.e.GetRolesForUser(userSubject(userID))
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(subjects))
	for _, s := range subjects {
		if !strings.HasPrefix(s, rolePrefix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(s, rolePrefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// HasRole checks if userID currently holds roleID
func (r *Enforcer) HasRole(userID uuid.UUID, roleID uint) (bool, error) {
	return r.e.HasRoleForUser(userSubject(userID), roleSubject(roleID))
}
