package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado aqui (fetch + commit explícito)
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Repo interface {
	UpsertRound(ctx context.Context, e events.RoundEvent, state string) (bool, error)
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Invalidator apaga o histórico em cache da conta
type Invalidator interface {
	Invalidate(ctx context.Context, accountID string) error
}

// Processor consome round_events, grava round_history e repassa o evento
// para o canal Redis lido pelo WebSocket do chance-service.
// Mensagens inválidas ou que esgotam as tentativas vão para a DLQ.
type Processor struct {
	Log         *zap.Logger
	Reader      MessageReader
	DLQ         MessageWriter // opcional
	Repo        Repo
	Broadcaster Broadcaster
	Channel     string
	Cache       Invalidator // opcional

	MaxAttempts int
	Backoff     time.Duration

	OnConsumed  func()       // métricas (counter++)
	OnPersist   func()       // métricas
	OnBroadcast func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.Handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.deadLetter(ctx, m, err)
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.fail("commit")
		}
	}
}

var errDecode = errors.New("decode round event")

// Handle processa uma mensagem. Erro significa que a mensagem deve ir para a DLQ.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var ev events.RoundEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		return errors.Join(errDecode, err)
	}

	if state := ev.HistoryState(); state != "" {
		if err := p.persist(ctx, ev, state); err != nil {
			return err
		}
	}

	p.broadcast(ev, m.Value)
	return nil
}

func (p *Processor) persist(ctx context.Context, ev events.RoundEvent, state string) error {
	attempts := max(p.MaxAttempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && !sleep(ctx, p.Backoff*time.Duration(i)) {
			return ctx.Err()
		}
		var applied bool
		applied, err = p.Repo.UpsertRound(ctx, ev, state)
		if err == nil {
			if !applied {
				p.Log.Debug("stale round event ignored", zap.String("round_id", ev.RoundID), zap.Int("version", ev.Version))
				return nil
			}
			if p.OnPersist != nil {
				p.OnPersist()
			}
			p.invalidate(ctx, ev)
			return nil
		}
		p.Log.Warn("db upsert failed", zap.String("round_id", ev.RoundID), zap.Int("attempt", i+1), zap.Error(err))
		p.fail("db_upsert")
	}
	return err
}

// invalidate só registra falhas; entradas antigas expiram pelo TTL
func (p *Processor) invalidate(ctx context.Context, ev events.RoundEvent) {
	if p.Cache == nil {
		return
	}
	if err := p.Cache.Invalidate(ctx, ev.AccountID); err != nil {
		p.Log.Warn("history cache invalidate failed", zap.String("account_id", ev.AccountID), zap.Error(err))
		p.fail("cache")
	}
}

// broadcast não bloqueia a persistência: falha só é registrada
func (p *Processor) broadcast(ev events.RoundEvent, payload []byte) {
	if p.Broadcaster == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Publish(ctx, p.Channel, payload); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.String("round_id", ev.RoundID), zap.Error(err))
		p.fail("broadcast")
		return
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		p.Log.Error("message dropped", zap.Int64("offset", m.Offset), zap.Error(cause))
		return
	}
	msg := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(m.Headers,
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "source_topic", Value: []byte(m.Topic)},
		),
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Error("dlq write failed", zap.Int64("offset", m.Offset), zap.Error(err))
		p.fail("dlq")
		return
	}
	p.Log.Warn("message sent to dlq", zap.Int64("offset", m.Offset), zap.Error(cause))
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
