package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	wrepo "github.com/radieske/chance-engine/internal/wallet-service/repo"
)

func WalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet helpers for local environments",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		WalletDepositCmd(),
		WalletHistoryCmd(),
	)
	return cmd
}

func addAccountFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("account", "a", "", "account id")
	cmd.MarkFlagRequired("account")
}

func WalletDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Credit coins to an account",
		RunE:  walletDeposit,
	}
	addAccountFlag(cmd)
	cmd.Flags().Int64P("amount", "m", 0, "coins")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func walletDeposit(cmd *cobra.Command, args []string) error {
	acct, _ := cmd.Flags().GetString("account")
	amount, _ := cmd.Flags().GetInt64("amount")
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	ctx := cmd.Context()
	pg, err := openDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	walletID, bal, err := wrepo.NewPostgres(pg).Deposit(ctx, acct, amount, "chancectl:"+uuid.NewString())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"account_id": acct,
		"wallet_id":  walletID,
		"balance":    bal,
	})
}

func WalletHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Latest ledger entries of an account",
		RunE:  walletHistory,
	}
	addAccountFlag(cmd)
	cmd.Flags().IntP("limit", "l", 20, "entries")
	return cmd
}

func walletHistory(cmd *cobra.Command, args []string) error {
	acct, _ := cmd.Flags().GetString("account")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx := cmd.Context()
	pg, err := openDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	entries, err := wrepo.NewPostgres(pg).ListTransactions(ctx, acct, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), entries)
}
