package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nebari-dev/rolestore/internal/db"
	"github.com/nebari-dev/rolestore/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserStore holds the user lookups the role API needs.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore backed by database.
func NewUserStore(database *gorm.DB) *UserStore {
	return &UserStore{db: database}
}

// Create hashes password and inserts a new user without a role.
func (s *UserStore) Create(ctx context.Context, username, email, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	}
	err = db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetByID returns the user with its role loaded, or nil if none exists.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := db.WithSession(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Preload("Role").Where("id = ?", id).Take(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername returns the user with its role loaded, or nil if none exists.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := db.WithSession(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Preload("Role").Where("username = ?", username).Take(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns all users ordered by username.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := db.WithSession(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Preload("Role").Order("username ASC").Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

