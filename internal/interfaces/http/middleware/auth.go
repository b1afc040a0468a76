package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/infrastructure/auth"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
	"github.com/autotraderhub/autotrader/internal/shared/utils"
)

type tokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwtService tokenVerifier
	logger     logger.Interface
}

func NewAuthMiddleware(jwtService tokenVerifier, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logger,
	}
}

// RequireAuth accepts only "Authorization: Bearer <token>" and stores the
// caller's user ID and role in the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.jwtService.Verify(strings.TrimSpace(token))
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err, "client_ip", c.ClientIP())
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, claims.UserID)
		c.Set(constants.ContextKeyUserRole, string(claims.Role))

		c.Next()
	}
}
