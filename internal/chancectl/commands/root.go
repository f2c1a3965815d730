// Package commands reúne os subcomandos do chancectl.
package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/shared/cache"
	"github.com/radieske/chance-engine/internal/shared/config"
	"github.com/radieske/chance-engine/internal/shared/db"
)

// RootCmd monta a árvore completa. Defaults das flags globais vêm do ambiente.
func RootCmd() *cobra.Command {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:           "chancectl",
		Short:         "chance engine admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("dsn", cfg.PostgresDSN, "postgres dsn")
	rootCmd.PersistentFlags().String("redis", cfg.RedisAddr, "redis address, empty to skip cache invalidation")
	rootCmd.PersistentFlags().String("secret", cfg.JWTSecret, "jwt hmac secret")

	rootCmd.AddCommand(
		SimulateCmd(),
		ConfigCmd(),
		CatalogCmd(),
		WalletCmd(),
		TokenCmd(),
		BotsCmd(),
		WatchCmd(),
	)
	return rootCmd
}

func gameFlag(cmd *cobra.Command) (engine.GameType, error) {
	s, _ := cmd.Flags().GetString("game")
	gt, ok := engine.ParseGameType(s)
	if !ok {
		return "", fmt.Errorf("unknown game %q", s)
	}
	return gt, nil
}

func openDB(ctx context.Context, cmd *cobra.Command) (*sql.DB, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	pg, err := db.ConnectPostgres(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pg); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}

// openRedis devolve nil quando --redis está vazio
func openRedis(cmd *cobra.Command) (*redis.Client, error) {
	addr, _ := cmd.Flags().GetString("redis")
	if addr == "" {
		return nil, nil
	}
	return cache.ConnectRedis(addr)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
