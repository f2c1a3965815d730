package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

const (
	writeWait = 5 * time.Second
	sendQueue = 32
)

// client tem uma fila de saída própria; só o writePump escreve na conexão
// (gorilla não aceita escritores concorrentes).
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendQueue)}
}

// enqueue nunca bloqueia: com a fila cheia a mensagem é descartada.
func (c *client) enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// writePump drena a fila até done fechar ou uma escrita falhar.
func (c *client) writePump(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				// derruba o read loop do Serve
				_ = c.conn.Close()
				return
			}
		}
	}
}

// Hub gerencia conexões WebSocket por conta.
// Cada conta só recebe os eventos das próprias rodadas.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
	// accountID -> set of clients
	subs map[string]map[*client]struct{}

	OnConnections func(n int)
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// Serve faz o upgrade e mantém a conexão até o cliente desconectar.
// accountID já vem autenticado pelo middleware.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, accountID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := newClient(conn)
	done := make(chan struct{})
	go c.writePump(done)
	defer close(done)

	h.add(accountID, c)
	defer h.remove(accountID, c)

	hello, _ := json.Marshal(ServerMsg{Type: "hello", Payload: map[string]string{"account_id": accountID}})
	c.enqueue(hello)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "ping" {
			b, _ := json.Marshal(ServerMsg{Type: "pong"})
			c.enqueue(b)
		}
	}
}

func (h *Hub) add(accountID string, c *client) {
	h.mu.Lock()
	if _, ok := h.subs[accountID]; !ok {
		h.subs[accountID] = make(map[*client]struct{})
	}
	h.subs[accountID][c] = struct{}{}
	n := h.countLocked()
	h.mu.Unlock()
	h.reportConnections(n)
}

func (h *Hub) remove(accountID string, c *client) {
	h.mu.Lock()
	if set, ok := h.subs[accountID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, accountID)
		}
	}
	n := h.countLocked()
	h.mu.Unlock()
	h.reportConnections(n)
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

func (h *Hub) reportConnections(n int) {
	if h.OnConnections != nil {
		h.OnConnections(n)
	}
}

// Connections devolve o total de conexões abertas
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

// Broadcast enfileira o evento para todas as conexões da conta dona da rodada.
// Não bloqueia: roda com o lock do coordenador seguro.
func (h *Hub) Broadcast(ev events.RoundEvent) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[ev.AccountID]))
	for c := range h.subs[ev.AccountID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(ServerMsg{Type: "round_event", Payload: ev})
	if err != nil {
		h.log.Error("ws marshal", zap.Error(err))
		return
	}
	for _, c := range targets {
		if !c.enqueue(b) {
			h.log.Debug("ws send queue full, dropping event",
				zap.String("account_id", ev.AccountID),
				zap.String("round_id", ev.RoundID),
			)
		}
	}
}

// Notify permite usar o Hub direto como notifier do coordenador
// (modo sem Kafka).
func (h *Hub) Notify(_ context.Context, ev events.RoundEvent) { h.Broadcast(ev) }
