package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/config"
)

// newTokenCommand signs development tokens with the configured auth secret.
func newTokenCommand(auth config.Auth) *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token for a shopper",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("failed issuing token with error=missing --user")
			}
			token, err := internal.IssueToken(auth, user, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner id placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
