package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"instrupro-backend/internal/model"
	"instrupro-backend/internal/mw"
)

var tokenPrincipal model.Principal
var tokenTTL time.Duration

// tokenCmd mints bearer tokens for local development against the
// configured secret.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret must be configured")
		}
		if tokenPrincipal.UID == "" {
			return errors.New("--uid is required")
		}
		token, err := mw.NewAuthenticator(cfg.Auth.JWTSecret).Issue(tokenPrincipal, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenPrincipal.UID, "uid", "", "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenPrincipal.Email, "email", "", "user email")
	tokenCmd.Flags().StringVar(&tokenPrincipal.DisplayName, "name", "", "display name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
}
