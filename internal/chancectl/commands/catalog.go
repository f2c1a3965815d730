package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radieske/chance-engine/internal/chance-service/catalog"
	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

func CatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Lucky box asset catalog",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		CatalogSeedCmd(),
		CatalogListCmd(),
	)
	return cmd
}

func CatalogSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the demo assets",
		RunE:  catalogSeed,
	}
}

func catalogSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pg, err := openDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	repo := catalog.NewPostgres(pg)
	for _, a := range catalog.DefaultAssets() {
		if err := repo.Upsert(ctx, a); err != nil {
			return fmt.Errorf("upsert %s: %w", a.ID, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d assets\n", len(catalog.DefaultAssets()))
	return nil
}

func CatalogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets eligible for a lucky box bet",
		RunE:  catalogList,
	}
	cmd.Flags().Int64P("bet", "b", 0, "bet amount")
	cmd.MarkFlagRequired("bet")
	return cmd
}

func catalogList(cmd *cobra.Command, args []string) error {
	bet, _ := cmd.Flags().GetInt64("bet")
	ctx := cmd.Context()
	pg, err := openDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	pr := engine.AssetPriceRange(bet, engine.Defaults(engine.GameLuckyBox))
	assets, err := catalog.NewPostgres(pg).ListAssets(ctx, pr)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"price_range": pr,
		"assets":      assets,
	})
}
