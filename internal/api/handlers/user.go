package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/rolestore/internal/audit"
	"github.com/nebari-dev/rolestore/internal/models"
	"github.com/nebari-dev/rolestore/internal/rbac"
	"github.com/nebari-dev/rolestore/internal/store"
	"gorm.io/gorm"
)

type UserHandler struct {
	db       *gorm.DB
	users    *store.UserStore
	roles    *store.RoleStore
	enforcer *rbac.Enforcer
}

// NewUserHandler creates a UserHandler. enforcer may be nil when RBAC
// mirroring is disabled.
func NewUserHandler(db *gorm.DB, enforcer *rbac.Enforcer) *UserHandler {
	return &UserHandler{
		db:       db,
		users:    store.NewUserStore(db),
		roles:    store.NewRoleStore(db),
		enforcer: enforcer,
	}
}

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// AttachRoleRequest is the body of PUT /users/{id}/role
type AttachRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

// UserRolesResponse lists the roles RBAC resolves for a user
type UserRolesResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	RoleIDs []uint    `json:"role_ids"`
}

func (h *UserHandler) loadUser(c *gin.Context) (*models.User, bool) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
		return nil, false
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch user"})
		return nil, false
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return nil, false
	}
	return user, true
}

// ListUsers godoc
// @Summary List all users
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}

	c.JSON(http.StatusOK, users)
}

// CreateUser godoc
// @Summary Create a new user
// @Tags users
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "User details"
// @Success 201 {object} models.User
// @Router /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		slog.Error("Failed to create user", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create user"})
		return
	}

	recordAudit(h.db, c, audit.ActionCreateUser, "user:"+user.ID.String(), map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
	})

	c.JSON(http.StatusCreated, user)
}

// GetUser godoc
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path string true "User UUID"
// @Success 200 {object} models.User
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// AttachRole godoc
// @Summary Attach a role to a user
// @Description Replaces whatever role the user held before.
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User UUID"
// @Param body body AttachRoleRequest true "Role to attach"
// @Success 200 {object} models.User
// @Router /users/{id}/role [put]
func (h *UserHandler) AttachRole(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req AttachRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	role, err := h.roles.GetRoleByID(ctx, req.RoleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch role"})
		return
	}
	if role == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Role not found"})
		return
	}

	var previous *uint
	if user.RoleID != nil {
		prev := *user.RoleID
		previous = &prev
	}

	if err := h.roles.AttachRoleToUser(ctx, role, user); err != nil {
		slog.Error("Failed to attach role", "user_id", user.ID, "role_id", role.ID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to attach role"})
		return
	}

	if h.enforcer != nil {
		if err := h.enforcer.AssignRole(user.ID, role.ID); err != nil {
			slog.Warn("Failed to mirror role assignment to RBAC", "user_id", user.ID, "role_id", role.ID, "error", err)
		}
	}

	recordAudit(h.db, c, audit.ActionAttachRole, "user:"+user.ID.String(), map[string]interface{}{
		"role_id":          role.ID,
		"previous_role_id": previous,
	})

	c.JSON(http.StatusOK, user)
}

// GetUserRoles godoc
// @Summary List the roles RBAC resolves for a user
// @Tags users
// @Produce json
// @Param id path string true "User UUID"
// @Success 200 {object} UserRolesResponse
// @Failure 404 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse
// @Router /users/{id}/roles [get]
func (h *UserHandler) GetUserRoles(c *gin.Context) {
	if h.enforcer == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "RBAC is disabled"})
		return
	}

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	roleIDs, err := h.enforcer.RolesForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf("Failed to resolve roles: %v", err)})
		return
	}

	c.JSON(http.StatusOK, UserRolesResponse{UserID: user.ID, RoleIDs: roleIDs})
}
