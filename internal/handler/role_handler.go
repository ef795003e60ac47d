package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/models"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// RoleHandler exposes role administration endpoints.
type RoleHandler struct {
	roles *service.RoleService
}

// NewRoleHandler constructs RoleHandler.
func NewRoleHandler(roles *service.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// Catalog godoc
// @Summary List grantable permission keys
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /roles/catalog [get]
func (h *RoleHandler) Catalog(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.roles.ListCatalog(), nil)
}

// List godoc
// @Summary List roles with grants
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// Create godoc
// @Summary Create a role
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateRoleRequest true "Role payload"
// @Success 201 {object} response.Envelope
// @Router /roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	var req models.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	role, err := h.roles.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

// ReplacePermissions godoc
// @Summary Replace a role's grants
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role ID"
// @Param payload body models.ReplacePermissionsRequest true "Grant set"
// @Success 204
// @Router /roles/{id}/permissions [put]
func (h *RoleHandler) ReplacePermissions(c *gin.Context) {
	var req models.ReplacePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.roles.ReplacePermissions(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type assignRoleRequest struct {
	IdentityID string `json:"identity_id" binding:"required"`
}

// Assign grants a role directly to an identity.
func (h *RoleHandler) Assign(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.roles.Assign(c.Request.Context(), req.IdentityID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unassign removes a direct role assignment.
func (h *RoleHandler) Unassign(c *gin.Context) {
	if err := h.roles.Unassign(c.Request.Context(), c.Param("identityId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type mapGroupRequest struct {
	GroupID string `json:"group_id" binding:"required"`
}

// MapGroup maps an external group onto the role.
func (h *RoleHandler) MapGroup(c *gin.Context) {
	var req mapGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.roles.MapGroup(c.Request.Context(), req.GroupID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnmapGroup removes an external group mapping.
func (h *RoleHandler) UnmapGroup(c *gin.Context) {
	if err := h.roles.UnmapGroup(c.Request.Context(), c.Param("groupId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type rankPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// SetRankPermissions replaces the grants tied to a rank.
func (h *RoleHandler) SetRankPermissions(c *gin.Context) {
	var req rankPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.roles.SetRankPermissions(c.Request.Context(), c.Param("rank"), req.Permissions); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
