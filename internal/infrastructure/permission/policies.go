package permission

import (
	"fmt"

	"github.com/autotraderhub/autotrader/internal/shared/authorization"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// Resources guarded by the permission middleware.
const (
	ResourceBrokerConnection = "broker_connection"
	ResourcePortfolio        = "portfolio"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// DefaultPolicies grants users full control over their own connections and
// read access to their portfolio. Admins inherit everything a user may do.
var DefaultPolicies = [][]string{
	{authorization.RoleUser.String(), ResourceBrokerConnection, ActionRead},
	{authorization.RoleUser.String(), ResourceBrokerConnection, ActionWrite},
	{authorization.RoleUser.String(), ResourceBrokerConnection, ActionDelete},
	{authorization.RoleUser.String(), ResourcePortfolio, ActionRead},
}

// InitDefaultPolicies seeds DefaultPolicies. Existing rules are left alone.
func InitDefaultPolicies(e *Enforcer, log logger.Interface) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, policy := range DefaultPolicies {
		if ok, _ := e.enforcer.HasPolicy(policy[0], policy[1], policy[2]); ok {
			continue
		}
		if _, err := e.enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			log.Errorw("failed to add permission policy",
				"error", err,
				"role", policy[0],
				"resource", policy[1],
				"action", policy[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w",
				policy[0], policy[1], policy[2], err)
		}
	}

	admin, user := authorization.RoleAdmin.String(), authorization.RoleUser.String()
	if ok, _ := e.enforcer.HasGroupingPolicy(admin, user); !ok {
		if _, err := e.enforcer.AddGroupingPolicy(admin, user); err != nil {
			return fmt.Errorf("failed to add admin role inheritance: %w", err)
		}
	}

	log.Info("permission policies initialized")
	return nil
}
