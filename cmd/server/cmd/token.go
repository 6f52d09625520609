package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventboard/internal/adapters/auth"
	"eventboard/internal/domain"
	"eventboard/internal/repository/postgres"

	"github.com/spf13/cobra"
)

var (
	tokenUserID   string
	tokenUsername string
	tokenTTL      time.Duration
	tokenRegister bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user (development)",
	Long: `Issue an HS256 bearer token signed with JWT_SECRET for the given user.

With --register the user is also upserted into the users table so the API can
resolve their username on events.

Examples:
  eventboard token --user-id u-1 --username alice --register`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(tokenUserID) == "" {
			return errors.New("--user-id is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}

		if tokenRegister {
			if tokenUsername == "" {
				return errors.New("--username is required with --register")
			}
			db, err := openDB(cfg.DBUrl)
			if err != nil {
				return err
			}
			defer db.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()
			user := &domain.UserSummary{ID: tokenUserID, Username: tokenUsername}
			if err := postgres.NewUserRepository(db).Upsert(ctx, user); err != nil {
				return err
			}
		}

		token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(tokenUserID, tokenUsername, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "username")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.Flags().BoolVar(&tokenRegister, "register", false, "upsert the user into the database")
}
