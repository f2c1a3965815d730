package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// Client consome o /ws do chance-service como uma conta autenticada e
// entrega cada round_event para OnEvent. Usado pelo chancectl watch.
type Client struct {
	URL     string        // ex: ws://localhost:8080/ws
	Token   string        // JWT da conta
	Log     *zap.Logger
	Backoff time.Duration // espera entre reconexões, default 3s

	OnEvent func(events.RoundEvent)
}

// Start mantém a conexão até ctx ser cancelado, reconectando em caso de queda.
func (c *Client) Start(ctx context.Context) {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}

	for {
		if err := c.connectAndListen(ctx); err != nil && ctx.Err() == nil {
			c.Log.Warn("connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping ws client")
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) connectAndListen(ctx context.Context) error {
	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to chance ws", zap.String("url", c.URL))

	// ReadMessage não observa ctx: fecha a conexão no cancelamento
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Log.Warn("invalid message", zap.Error(err))
			continue
		}
		if msg.Type != "round_event" {
			continue
		}

		var ev events.RoundEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			c.Log.Warn("invalid round event", zap.Error(err))
			continue
		}
		if c.OnEvent != nil {
			c.OnEvent(ev)
		}
	}
}
