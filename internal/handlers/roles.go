package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type roleResponse struct {
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toRoleResponse(role models.Role) roleResponse {
	permissions := role.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return roleResponse{
		Name:        string(role.Name),
		Permissions: permissions,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func (h HandlerSet) ListRoles(c *gin.Context) {
	roles, err := h.services.Roles.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	items := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		items = append(items, toRoleResponse(role))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

type createRoleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Description *string  `json:"description"`
}

func (h HandlerSet) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.services.Roles.Create(c.Request.Context(), models.Role{
		Name:        models.UserRole(req.Name),
		Permissions: req.Permissions,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, toRoleResponse(role))
}

type updateRoleRequest struct {
	Permissions *[]string `json:"permissions"`
	Description *string   `json:"description"`
}

func (h HandlerSet) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.services.Roles.Update(c.Request.Context(), models.UserRole(c.Param("name")), repository.RoleUpdate{
		Permissions: req.Permissions,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toRoleResponse(role))
}

func (h HandlerSet) DeleteRole(c *gin.Context) {
	if err := h.services.Roles.Delete(c.Request.Context(), models.UserRole(c.Param("name"))); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Role deleted successfully", nil)
}
