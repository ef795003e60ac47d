package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/middleware"
	"github.com/frontier-maritime/intranet-api/internal/models"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// AuthHandler exposes session endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	resolver *service.ResolverService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *service.AuthService, resolver *service.ResolverService) *AuthHandler {
	return &AuthHandler{auth: auth, resolver: resolver}
}

// Exchange godoc
// @Summary Exchange a verified identity for a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.IdentityExchangeRequest true "Exchange payload"
// @Success 200 {object} response.Envelope
// @Router /auth/exchange [post]
func (h *AuthHandler) Exchange(c *gin.Context) {
	var req models.IdentityExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IP = c.ClientIP()
	session, err := h.auth.Exchange(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// BreakGlass godoc
// @Summary Break-glass admin login
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.BreakGlassLoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/break-glass [post]
func (h *AuthHandler) BreakGlass(c *gin.Context) {
	var req models.BreakGlassLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IP = c.ClientIP()
	session, err := h.auth.BreakGlassLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Refresh godoc
// @Summary Refresh a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IP = c.ClientIP()
	session, err := h.auth.Refresh(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Me godoc
// @Summary Current principal with resolved capabilities
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	if authzCtx == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"employee":    authzCtx.Employee,
		"superuser":   authzCtx.Superuser,
		"restricted":  authzCtx.Restricted(),
		"role_ids":    authzCtx.RoleIDs(),
		"permissions": authzCtx.Permissions(),
	}, nil)
}
