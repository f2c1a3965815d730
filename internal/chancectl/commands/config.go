package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radieske/chance-engine/internal/chance-service/configprovider"
	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Game config management",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		ConfigGetCmd(),
		ConfigPutCmd(),
		ConfigValidateCmd(),
	)
	return cmd
}

func addGameFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("game", "g", "", "game type (crash | luckybox)")
	cmd.MarkFlagRequired("game")
}

func ConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the stored document and the effective config",
		RunE:  configGet,
	}
	addGameFlag(cmd)
	return cmd
}

type configView struct {
	Stored    engine.PartialConfig `json:"stored"`
	Effective engine.ChanceConfig  `json:"effective"`
	Dropped   []string             `json:"dropped,omitempty"`
	Missing   bool                 `json:"missing,omitempty"`
}

func configGet(cmd *cobra.Command, args []string) error {
	gt, err := gameFlag(cmd)
	if err != nil {
		return err
	}
	pg, err := openDB(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	var view configView
	p, err := configprovider.NewPostgresStore(pg).GetConfig(cmd.Context(), gt)
	switch {
	case errors.Is(err, configprovider.ErrConfigNotFound):
		view.Missing = true
	case err != nil:
		return err
	}
	view.Stored = p
	view.Effective, view.Dropped = engine.Merge(engine.Defaults(gt), p)
	return printJSON(cmd.OutOrStdout(), view)
}

func ConfigPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store a partial config document and drop the cached copy",
		RunE:  configPut,
	}
	addConfigPutFlags(cmd)
	return cmd
}

func addConfigPutFlags(cmd *cobra.Command) {
	addGameFlag(cmd)
	cmd.Flags().StringP("file", "f", "", "json document")
	cmd.MarkFlagRequired("file")
	cmd.Flags().Bool("force", false, "store even if some fields would be dropped")
}

func configPut(cmd *cobra.Command, args []string) error {
	gt, err := gameFlag(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")
	force, _ := cmd.Flags().GetBool("force")

	p, err := readPartial(path)
	if err != nil {
		return err
	}
	if _, dropped := engine.Merge(engine.Defaults(gt), p); len(dropped) > 0 && !force {
		return fmt.Errorf("invalid config fields: %v (use --force to store anyway)", dropped)
	}

	ctx := cmd.Context()
	pg, err := openDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	store := configprovider.NewPostgresStore(pg)
	if err := store.PutConfig(ctx, gt, p); err != nil {
		return err
	}

	rdb, err := openRedis(cmd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache not invalidated: %v\n", err)
	} else if rdb != nil {
		defer rdb.Close()
		if err := configprovider.NewRedisCache(rdb, 0, store, nil).Invalidate(ctx, gt); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache not invalidated: %v\n", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stored %s config; new sessions pick it up\n", gt)
	return nil
}

func ConfigValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Merge a document over the defaults and report dropped fields",
		RunE:  configValidate,
	}
	addGameFlag(cmd)
	cmd.Flags().StringP("file", "f", "", "json document")
	cmd.MarkFlagRequired("file")
	return cmd
}

func configValidate(cmd *cobra.Command, args []string) error {
	gt, err := gameFlag(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")
	p, err := readPartial(path)
	if err != nil {
		return err
	}

	view := configView{Stored: p}
	view.Effective, view.Dropped = engine.Merge(engine.Defaults(gt), p)
	if err := printJSON(cmd.OutOrStdout(), view); err != nil {
		return err
	}
	if len(view.Dropped) > 0 {
		return fmt.Errorf("%d field(s) dropped", len(view.Dropped))
	}
	return nil
}
