package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/house-report/internal/server"
)

var (
	tokenUser  string
	tokenAdmin bool
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token signed with server.jwt_secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Server.JWTSecret == "" {
			return eris.New("server.jwt_secret is required")
		}
		tok, err := server.NewAuthenticator(cfg.Server.JWTSecret).Sign(tokenUser, tokenAdmin, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (token subject)")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "grant admin access")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
