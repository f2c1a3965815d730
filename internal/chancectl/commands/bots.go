package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/shared/config"
	"github.com/radieske/chance-engine/internal/shared/logger"
	"github.com/radieske/chance-engine/internal/simulate"
)

func BotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "Play rounds against a running chance-service with bot accounts",
		RunE:  runBots,
	}
	addBotsFlags(cmd)
	return cmd
}

func addBotsFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", config.Load().ChanceURL, "chance-service base url")
	addGameFlag(cmd)
	cmd.Flags().IntP("bots", "n", 10, "concurrent bot accounts")
	cmd.Flags().IntP("rounds", "r", 20, "rounds per bot")
	cmd.Flags().Int64P("bet", "b", 100, "bet amount")
	cmd.Flags().Float64P("target", "t", 1.5, "crash cash-out multiplier")
	cmd.Flags().Int("boxes", 3, "lucky box count")
	cmd.Flags().Duration("poll", 50*time.Millisecond, "crash round polling interval")
}

func runBots(cmd *cobra.Command, args []string) error {
	gt, err := gameFlag(cmd)
	if err != nil {
		return err
	}
	url, _ := cmd.Flags().GetString("url")
	secret, _ := cmd.Flags().GetString("secret")
	bots, _ := cmd.Flags().GetInt("bots")
	rounds, _ := cmd.Flags().GetInt("rounds")
	bet, _ := cmd.Flags().GetInt64("bet")
	target, _ := cmd.Flags().GetFloat64("target")
	boxes, _ := cmd.Flags().GetInt("boxes")
	poll, _ := cmd.Flags().GetDuration("poll")

	if gt == engine.GameCrash && target < 1.01 {
		return fmt.Errorf("target %.2f below 1.01", target)
	}

	log, err := logger.New("chancectl", "local", "info")
	if err != nil {
		return err
	}
	defer log.Sync()

	rep, err := simulate.RunFleet(cmd.Context(), simulate.FleetConfig{
		BaseURL: url,
		Secret:  secret,
		Bots:    bots,
		Rounds:  rounds,
		Game:    gt,
		Bet:     bet,
		Target:  target,
		Boxes:   boxes,
		Poll:    poll,
	}, log)
	if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
		return perr
	}
	return err
}
