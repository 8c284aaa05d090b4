package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nebari-dev/rolestore/internal/db"
	"github.com/nebari-dev/rolestore/internal/models"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleStore persists roles. Every method runs in its own unit of work:
// reads through db.WithSession, writes through db.WithTx.
type RoleStore struct {
	db *gorm.DB
}

// NewRoleStore creates a RoleStore backed by database.
func NewRoleStore(database *gorm.DB) *RoleStore {
	return &RoleStore{db: database}
}

// CreateRoleParams holds the caller-supplied fields of a new role.
type CreateRoleParams struct {
	Name               string
	Description        *string
	CustomInstructions *string
	CreatedBy          *string
}

// RoleUpdate lists the mutable fields of a role. Nil fields are left alone.
type RoleUpdate struct {
	Name               *string
	Description        *string
	CustomInstructions *string
	CreatedBy          *string
}

func (u RoleUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.CustomInstructions != nil {
		cols["custom_instructions"] = *u.CustomInstructions
	}
	if u.CreatedBy != nil {
		cols["created_by"] = *u.CreatedBy
	}
	return cols
}

// ChooseName returns candidate if no role is named that, otherwise
// "<candidate> <n>" for the smallest n >= 2 that is free. The check is not
// atomic with any later insert.
func (s *RoleStore) ChooseName(ctx context.Context, candidate string) (string, error) {
	var name string
	err := db.WithSession(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		name, err = chooseName(tx, candidate)
		return err
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func chooseName(tx *gorm.DB, candidate string) (string, error) {
	roles, err := allRoles(tx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		taken[r.Name] = struct{}{}
	}
	return nextFreeName(candidate, taken), nil
}

func nextFreeName(candidate string, taken map[string]struct{}) string {
	if _, ok := taken[candidate]; !ok {
		return candidate
	}
	for n := 2; ; n++ {
		name := candidate + " " + strconv.Itoa(n)
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

// CreateRole stores a new role under a collision-free variant of p.Name.
func (s *RoleStore) CreateRole(ctx context.Context, p CreateRoleParams) (*models.Role, error) {
	role := &models.Role{
		Description:        p.Description,
		CustomInstructions: p.CustomInstructions,
		CreatedBy:          p.CreatedBy,
	}
	err := db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		name, err := chooseName(tx, p.Name)
		if err != nil {
			return err
		}
		role.Name = name
		return tx.Create(role).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// GetByName returns the role with exactly this name, or nil if none exists.
// If several roles share the name the oldest is returned.
func (s *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return s.first(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("name = ?", name).Order("id ASC")
	})
}

// GetRoleByID returns the role with the given id, or nil if none exists.
func (s *RoleStore) GetRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	return s.first(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id = ?", id)
	})
}

func (s *RoleStore) first(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (*models.Role, error) {
	var role models.Role
	err := db.WithSession(ctx, s.db, func(tx *gorm.DB) error {
		return scope(tx).Take(&role).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// GetAllRoles returns every role, oldest first.
func (s *RoleStore) GetAllRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := db.WithSession(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		roles, err = allRoles(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func allRoles(tx *gorm.DB) ([]models.Role, error) {
	var roles []models.Role
	if err := tx.Order("created_at ASC").Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// AttachRoleToUser points user at role and saves the user row. Any previous
// role on the user is replaced. The role is not looked up. user is only
// modified once the save has committed.
func (s *RoleStore) AttachRoleToUser(ctx context.Context, role *models.Role, user *models.User) error {
	roleID := role.ID
	updated := *user
	updated.RoleID = &roleID
	updated.Role = role
	err := db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Save(&updated).Error
	})
	if err != nil {
		return fmt.Errorf("attach role %d to user %s: %w", role.ID, user.ID, err)
	}
	*user = updated
	return nil
}

// GetAll returns all roles, or only those whose name contains searchTerm
// when it is non-empty. Matching uses Unicode case folding in Go rather than
// SQL LOWER, which sqlite applies to ASCII only. Order is unspecified.
func (s *RoleStore) GetAll(ctx context.Context, searchTerm string) ([]models.Role, error) {
	var roles []models.Role
	err := db.WithSession(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Find(&roles).Error
	})
	if err != nil {
		return nil, err
	}
	if searchTerm == "" {
		return roles, nil
	}

	fold := cases.Fold()
	term := fold.String(searchTerm)
	matched := make([]models.Role, 0, len(roles))
	for _, r := range roles {
		if strings.Contains(fold.String(r.Name), term) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Delete removes the role with the given id. Missing ids are not an error.
func (s *RoleStore) Delete(ctx context.Context, id uint) error {
	err := db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&models.Role{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete role %d: %w", id, err)
	}
	return nil
}

// Update applies the non-nil fields of u to the role with the given id and
// returns the stored result. It returns nil, nil when the role does not exist.
func (s *RoleStore) Update(ctx context.Context, id uint, u RoleUpdate) (*models.Role, error) {
	var role models.Role
	found := true
	err := db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}

		cols := u.columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&role).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Take(&role).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update role %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &role, nil
}
