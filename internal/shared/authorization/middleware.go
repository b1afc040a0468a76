package authorization

import (
	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/shared/constants"
)

// UserFromContext returns the user ID and role stored by the auth middleware.
func UserFromContext(c *gin.Context) (uint, UserRole, bool) {
	raw, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, "", false
	}
	userID, ok := raw.(uint)
	if !ok || userID == 0 {
		return 0, "", false
	}
	return userID, ParseUserRole(c.GetString(constants.ContextKeyUserRole)), true
}
