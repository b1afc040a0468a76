// Package token issues bearer tokens for local development and operations.
package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autotraderhub/autotrader/internal/infrastructure/auth"
	"github.com/autotraderhub/autotrader/internal/infrastructure/config"
	"github.com/autotraderhub/autotrader/internal/shared/authorization"
)

var (
	env        string
	configPath string
	userID     uint
	role       string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access token tools",
	}

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access token for a user",
		Long:  `Sign an access token with the configured JWT secret. Intended for local development and support.`,
		RunE:  runIssue,
	}
	issue.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	issue.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	issue.Flags().UintVar(&userID, "user-id", 0, "User ID to embed in the token (required)")
	issue.Flags().StringVar(&role, "role", authorization.RoleUser.String(), "Role to embed in the token (user, admin)")
	_ = issue.MarkFlagRequired("user-id")

	cmd.AddCommand(issue)
	return cmd
}

func runIssue(cmd *cobra.Command, args []string) error {
	if userID == 0 {
		return fmt.Errorf("--user-id must be positive")
	}
	userRole := authorization.UserRole(role)
	if !userRole.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}

	cfg, err := config.Load(env, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	svc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	token, expiresAt, err := svc.Generate(userID, userRole)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "# expires %s\n", expiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
	return nil
}
