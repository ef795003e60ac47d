package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// ContextAuthzKey is the gin context key storing the request's authorization
// context.
const ContextAuthzKey = "authzContext"

// Authorize builds the authorization context for the authenticated principal
// and requires any of the given permission keys. With no keys, authentication
// alone passes. A resolver failure aborts with 503, never 403: an outage must
// not read as a missing permission.
func Authorize(resolver *service.ResolverService, metrics *service.MetricsService, keys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		authzCtx, err := resolver.BuildContext(c.Request.Context(), claims)
		if err != nil {
			if appErrors.IsUnavailable(err) {
				metrics.RecordAuthzDecision("unavailable")
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		if !authzCtx.HasAny(keys...) {
			metrics.RecordAuthzDecision("deny")
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.RecordAuthzDecision("allow")
		c.Set(ContextAuthzKey, authzCtx)
		c.Next()
	}
}

// RestrictTrainees blocks restricted principals from surfaces outside the
// college. Attach it to every non-college route group after Authorize.
func RestrictTrainees() gin.HandlerFunc {
	return func(c *gin.Context) {
		authzCtx := AuthzFrom(c)
		if authzCtx == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if authzCtx.Restricted() {
			response.Error(c, appErrors.ErrRestricted)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthzFrom extracts the authorization context placed by Authorize.
func AuthzFrom(c *gin.Context) *authz.Context {
	value, exists := c.Get(ContextAuthzKey)
	if !exists {
		return nil
	}
	ctx, ok := value.(*authz.Context)
	if !ok {
		return nil
	}
	return ctx
}
