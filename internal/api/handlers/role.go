package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/rolestore/internal/audit"
	"github.com/nebari-dev/rolestore/internal/models"
	"github.com/nebari-dev/rolestore/internal/rbac"
	"github.com/nebari-dev/rolestore/internal/store"
	"gorm.io/gorm"
)

type RoleHandler struct {
	db       *gorm.DB
	roles    *store.RoleStore
	enforcer *rbac.Enforcer
}

// NewRoleHandler creates a RoleHandler. enforcer may be nil when RBAC
// mirroring is disabled.
func NewRoleHandler(db *gorm.DB, enforcer *rbac.Enforcer) *RoleHandler {
	return &RoleHandler{db: db, roles: store.NewRoleStore(db), enforcer: enforcer}
}

// CreateRoleRequest is the body of POST /roles
type CreateRoleRequest struct {
	Name               string  `json:"name" binding:"required"`
	Description        *string `json:"description"`
	CustomInstructions *string `json:"custom_instructions"`
	CreatedBy          *string `json:"created_by"`
}

// UpdateRoleRequest is the body of PATCH /roles/{id}. Omitted fields are left unchanged.
type UpdateRoleRequest struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	CustomInstructions *string `json:"custom_instructions"`
	CreatedBy          *string `json:"created_by"`
}

// NameSuggestionResponse is returned by GET /roles/suggest-name
type NameSuggestionResponse struct {
	Name string `json:"name"`
}

// ListRoles godoc
// @Summary List roles
// @Description Without parameters returns every role. search filters by case-insensitive name substring. order=created returns all roles oldest first and cannot be combined with search.
// @Tags roles
// @Produce json
// @Param search query string false "Name substring"
// @Param order query string false "Set to 'created' to order by creation time"
// @Success 200 {array} models.Role
// @Router /roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	ctx := c.Request.Context()
	search := c.Query("search")
	order := c.Query("order")

	var (
		roles []models.Role
		err   error
	)
	switch order {
	case "":
		roles, err = h.roles.GetAll(ctx, search)
	case "created":
		if search != "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "order=created cannot be combined with search"})
			return
		}
		roles, err = h.roles.GetAllRoles(ctx)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unsupported order %q", order)})
		return
	}
	if err != nil {
		slog.Error("Failed to list roles", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch roles"})
		return
	}
	if roles == nil {
		roles = []models.Role{}
	}

	c.JSON(http.StatusOK, roles)
}

// CreateRole godoc
// @Summary Create a role
// @Description The stored name may differ from the requested one when it is already taken.
// @Tags roles
// @Accept json
// @Produce json
// @Param role body CreateRoleRequest true "Role details"
// @Success 201 {object} models.Role
// @Router /roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role, err := h.roles.CreateRole(c.Request.Context(), store.CreateRoleParams{
		Name:               req.Name,
		Description:        req.Description,
		CustomInstructions: req.CustomInstructions,
		CreatedBy:          req.CreatedBy,
	})
	if err != nil {
		slog.Error("Failed to create role", "name", req.Name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create role"})
		return
	}

	recordAudit(h.db, c, audit.ActionCreateRole, fmt.Sprintf("role:%d", role.ID), map[string]interface{}{
		"requested_name": req.Name,
		"name":           role.Name,
	})

	c.JSON(http.StatusCreated, role)
}

// SuggestName godoc
// @Summary Suggest a free role name
// @Tags roles
// @Produce json
// @Param name query string true "Candidate name"
// @Success 200 {object} NameSuggestionResponse
// @Router /roles/suggest-name [get]
func (h *RoleHandler) SuggestName(c *gin.Context) {
	candidate := c.Query("name")
	if candidate == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	name, err := h.roles.ChooseName(c.Request.Context(), candidate)
	if err != nil {
		slog.Error("Failed to choose role name", "candidate", candidate, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to choose name"})
		return
	}

	c.JSON(http.StatusOK, NameSuggestionResponse{Name: name})
}

// GetRoleByName godoc
// @Summary Get role by exact name
// @Tags roles
// @Produce json
// @Param name path string true "Role name"
// @Success 200 {object} models.Role
// @Router /roles/by-name/{name} [get]
func (h *RoleHandler) GetRoleByName(c *gin.Context) {
	role, err := h.roles.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch role"})
		return
	}
	if role == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Role not found"})
		return
	}

	c.JSON(http.StatusOK, role)
}

// GetRole godoc
// @Summary Get role by ID
// @Tags roles
// @Produce json
// @Param id path int true "Role ID"
// @Success 200 {object} models.Role
// @Router /roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, ok := parseRoleID(c)
	if !ok {
		return
	}

	role, err := h.roles.GetRoleByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch role"})
		return
	}
	if role == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Role not found"})
		return
	}

	c.JSON(http.StatusOK, role)
}

// UpdateRole godoc
// @Summary Update a role
// @Tags roles
// @Accept json
// @Produce json
// @Param id path int true "Role ID"
// @Param role body UpdateRoleRequest true "Fields to change"
// @Success 200 {object} models.Role
// @Router /roles/{id} [patch]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := parseRoleID(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role, err := h.roles.Update(c.Request.Context(), id, store.RoleUpdate{
		Name:               req.Name,
		Description:        req.Description,
		CustomInstructions: req.CustomInstructions,
		CreatedBy:          req.CreatedBy,
	})
	if err != nil {
		slog.Error("Failed to update role", "role_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update role"})
		return
	}
	if role == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Role not found"})
		return
	}

	recordAudit(h.db, c, audit.ActionUpdateRole, fmt.Sprintf("role:%d", id), req)

	c.JSON(http.StatusOK, role)
}

// DeleteRole godoc
// @Summary Delete a role
// @Description Succeeds whether or not the role exists.
// @Tags roles
// @Param id path int true "Role ID"
// @Success 204
// @Router /roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := parseRoleID(c)
	if !ok {
		return
	}

	if err := h.roles.Delete(c.Request.Context(), id); err != nil {
		slog.Error("Failed to delete role", "role_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete role"})
		return
	}

	if h.enforcer != nil {
		if err := h.enforcer.RemoveRole(id); err != nil {
			slog.Warn("Failed to remove role from RBAC", "role_id", id, "error", err)
		}
	}

	recordAudit(h.db, c, audit.ActionDeleteRole, fmt.Sprintf("role:%d", id), nil)

	c.Status(http.StatusNoContent)
}
