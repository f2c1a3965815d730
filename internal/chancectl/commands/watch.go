package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/radieske/chance-engine/internal/chance-service/ws"
	"github.com/radieske/chance-engine/internal/shared/auth"
	"github.com/radieske/chance-engine/internal/shared/config"
	"github.com/radieske/chance-engine/internal/shared/logger"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream an account's round events from the chance-service websocket",
		RunE:  watch,
	}
	cmd.Flags().String("url", wsURL(config.Load().ChanceURL), "chance-service websocket url")
	addAccountFlag(cmd)
	return cmd
}

// wsURL troca o esquema http(s) por ws(s) e aponta para /ws
func wsURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/ws"
}

func watch(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	acct, _ := cmd.Flags().GetString("account")
	secret, _ := cmd.Flags().GetString("secret")

	tok, err := auth.Sign(secret, acct, 12*time.Hour)
	if err != nil {
		return err
	}
	log, err := logger.New("chancectl", "local", "warn")
	if err != nil {
		return err
	}
	defer log.Sync()

	out := cmd.OutOrStdout()
	c := &ws.Client{
		URL:   url,
		Token: tok,
		Log:   log,
		OnEvent: func(ev events.RoundEvent) {
			b, _ := json.Marshal(ev)
			fmt.Fprintln(out, string(b))
		},
	}
	c.Start(cmd.Context())
	return nil
}
