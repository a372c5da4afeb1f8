package cli

import (
	"fmt"
	"time"

	"github.com/boddenberg/creditline/internal/config"
	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/handler"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the mutating routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = config.LoadDotEnv(envFile)
			guard := handler.NewTokenGuard(config.Load().JWTSecret)
			if guard == nil {
				return &domain.ErrValidation{Field: "JWT_SECRET", Message: "required to mint tokens"}
			}
			token, err := guard.Issue(subject, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}
