package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radieske/chance-engine/internal/chance-service/catalog"
	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/simulate"
)

func SimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Monte Carlo RTP for a game config",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		SimulateCrashCmd(),
		SimulateLuckyBoxCmd(),
	)
	return cmd
}

func addSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("rounds", "n", 100_000, "rounds to play")
	cmd.Flags().Int64P("bet", "b", 100, "bet amount per round")
	cmd.Flags().Uint64P("seed", "s", 0, "rng seed, 0 uses crypto/rand")
	cmd.Flags().StringP("config", "c", "", "json file with a partial config merged over the defaults")
}

func SimulateCrashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crash",
		Short: "Simulate crash rounds with a fixed cash-out target",
		RunE:  simulateCrash,
	}
	addSimulateFlags(cmd)
	cmd.Flags().Float64P("target", "t", 2.0, "cash-out multiplier")
	return cmd
}

func simulateCrash(cmd *cobra.Command, args []string) error {
	rounds, _ := cmd.Flags().GetInt("rounds")
	bet, _ := cmd.Flags().GetInt64("bet")
	target, _ := cmd.Flags().GetFloat64("target")

	cfg, err := simulationConfig(cmd, engine.GameCrash)
	if err != nil {
		return err
	}
	if target < engine.MinCrashPoint {
		return fmt.Errorf("target %.2f below %.2f", target, engine.MinCrashPoint)
	}

	rep := simulate.Crash(simulationRNG(cmd), cfg, rounds, bet, target)
	return printJSON(cmd.OutOrStdout(), rep)
}

func SimulateLuckyBoxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "luckybox",
		Short: "Simulate lucky box rounds",
		RunE:  simulateLuckyBox,
	}
	addSimulateFlags(cmd)
	cmd.Flags().Bool("sessions", false, "play full rounds through the settlement coordinator and check the ledger")
	return cmd
}

func simulateLuckyBox(cmd *cobra.Command, args []string) error {
	rounds, _ := cmd.Flags().GetInt("rounds")
	bet, _ := cmd.Flags().GetInt64("bet")
	sessions, _ := cmd.Flags().GetBool("sessions")

	cfg, err := simulationConfig(cmd, engine.GameLuckyBox)
	if err != nil {
		return err
	}

	if sessions {
		if bet < cfg.MinBet || bet > cfg.MaxBet {
			return fmt.Errorf("bet %d not in [%d, %d]", bet, cfg.MinBet, cfg.MaxBet)
		}
		rep, err := simulate.LuckyBoxSessions(cmd.Context(), simulationRNG(cmd), cfg, rounds, bet)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rep)
	}

	rep := simulate.Loot(simulationRNG(cmd), cfg, catalog.DefaultAssets(), rounds, bet)
	return printJSON(cmd.OutOrStdout(), rep)
}

func simulationRNG(cmd *cobra.Command) engine.RandomSource {
	seed, _ := cmd.Flags().GetUint64("seed")
	if seed == 0 {
		return engine.CryptoSource()
	}
	return engine.NewSeededSource(seed)
}

// simulationConfig aplica o arquivo --config sobre os defaults do jogo.
// Qualquer campo descartado pelo merge é erro.
func simulationConfig(cmd *cobra.Command, gt engine.GameType) (engine.ChanceConfig, error) {
	base := engine.Defaults(gt)
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return base, nil
	}
	p, err := readPartial(path)
	if err != nil {
		return base, err
	}
	cfg, dropped := engine.Merge(base, p)
	if len(dropped) > 0 {
		return base, fmt.Errorf("invalid config fields: %v", dropped)
	}
	return cfg, nil
}

func readPartial(path string) (engine.PartialConfig, error) {
	var p engine.PartialConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}
