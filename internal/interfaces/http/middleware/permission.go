package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/shared/authorization"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
	"github.com/autotraderhub/autotrader/internal/shared/utils"
)

type policyEnforcer interface {
	Enforce(subject, resource, action string) (bool, error)
}

type PermissionMiddleware struct {
	enforcer policyEnforcer
	logger   logger.Interface
}

func NewPermissionMiddleware(enforcer policyEnforcer, logger logger.Interface) *PermissionMiddleware {
	return &PermissionMiddleware{
		enforcer: enforcer,
		logger:   logger,
	}
}

// RequirePermission checks the caller's role against the casbin policy.
// It must run after AuthMiddleware.RequireAuth.
func (m *PermissionMiddleware) RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := authorization.UserFromContext(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
			c.Abort()
			return
		}
		if !role.IsValid() {
			m.logger.Warnw("unknown role in token", "user_id", userID, "role", role)
			utils.ErrorResponse(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}

		allowed, err := m.enforcer.Enforce(role.String(), resource, action)
		if err != nil {
			m.logger.Errorw("permission check failed", "error", err, "user_id", userID, "resource", resource, "action", action)
			utils.ErrorResponse(c, http.StatusInternalServerError, "permission check failed")
			c.Abort()
			return
		}

		if !allowed {
			m.logger.Warnw("permission denied", "user_id", userID, "role", role, "resource", resource, "action", action)
			utils.ErrorResponse(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}
