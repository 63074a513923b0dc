package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/priyanshu-1006/GDG-Edit-sub000/pkg/auth"
)

func init() {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an admin access token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	cmd.Flags().String("role", "admin", "Role claim")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")

	RootCmd.AddCommand(cmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	role, _ := cmd.Flags().GetString("role")
	email, _ := cmd.Flags().GetString("email")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	jwtAuth, err := auth.NewLocalJWTAuth(cfg.JWTSecret, ttl)
	if err != nil {
		return err
	}
	token, err := jwtAuth.GenerateAccessToken(args[0], email, role)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
