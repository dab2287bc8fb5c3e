package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "barangay/internal/jwt_token"
	"barangay/internal/platform/config"
	id "barangay/pkg/domain"
	"barangay/pkg/requestcontext"
)

// tokenCmd issues a development bearer token signed with JWT_SIGNING_KEY.
func tokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid := id.NewUserID()
			if userID != "" {
				parsed, err := id.ParseUserID(userID)
				if err != nil {
					return fmt.Errorf("invalid --user-id: %w", err)
				}
				uid = parsed
			}
			cfg := config.FromEnv()
			svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
			token, err := svc.GenerateAccessToken(uid, email, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "subject user id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", requestcontext.RoleResident, "role claim: resident, admin or super_admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
