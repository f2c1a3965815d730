package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/radieske/chance-engine/internal/shared/auth"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a dev token for an account",
		RunE:  signToken,
	}
	addAccountFlag(cmd)
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func signToken(cmd *cobra.Command, args []string) error {
	acct, _ := cmd.Flags().GetString("account")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		return fmt.Errorf("empty secret")
	}

	tok, err := auth.Sign(secret, acct, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
