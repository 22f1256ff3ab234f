package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		user   string
		name   string
		secret string
		issuer string
		ttl    time.Duration
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token",
		Long: `Sign a bearer token locally with the server's JWT secret.

Intended for development and testing; the secret must match the server's
JWT_SECRET. Use --save to store the token for later commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || secret == "" {
				return fmt.Errorf("--user and --secret are required")
			}
			if name == "" {
				name = user
			}

			now := time.Now()
			token, err := auth.IssueToken(secret, issuer, model.PlayerID(user), name, now, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			if save {
				if err := cfg.SaveToken(token); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(TokenResult{
				Token:     token,
				PlayerID:  user,
				ExpiresAt: now.Add(ttl).UTC(),
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Player id to put in the token subject (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name claim (defaults to the player id)")
	cmd.Flags().StringVar(&secret, "secret", getEnvOrDefault("JWT_SECRET", ""), "Signing secret (env: JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", auth.DefaultConfig().Issuer, "Token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "Save the token to the token file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
