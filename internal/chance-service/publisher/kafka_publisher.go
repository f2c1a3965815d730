package publisher

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica RoundEvents em "round_events".
// Notify nunca bloqueia: o coordenador chama com o lock da sessão
// adquirido, então os eventos vão para uma fila e Run faz o envio.
// Fila cheia descarta o evento (OnDropped).
type KafkaPublisher struct {
	writer       MessageWriter
	log          *zap.Logger
	queue        chan events.RoundEvent
	writeTimeout time.Duration
	closed       atomic.Bool

	OnPublished func(ev events.RoundEvent)
	OnDropped   func(ev events.RoundEvent)
	OnError     func(err error)
}

func NewKafkaPublisher(w MessageWriter, log *zap.Logger, buffer int) *KafkaPublisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &KafkaPublisher{
		writer:       w,
		log:          log,
		queue:        make(chan events.RoundEvent, buffer),
		writeTimeout: 5 * time.Second,
	}
}

// Notify enfileira o evento para envio assíncrono
func (p *KafkaPublisher) Notify(_ context.Context, ev events.RoundEvent) {
	if p.closed.Load() {
		p.drop(ev)
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.drop(ev)
	}
}

func (p *KafkaPublisher) drop(ev events.RoundEvent) {
	p.log.Warn("round event dropped", zap.String("round_id", ev.RoundID), zap.String("state", ev.State))
	if p.OnDropped != nil {
		p.OnDropped(ev)
	}
}

// Run consome a fila até ctx ser cancelado; depois drena o que restou.
func (p *KafkaPublisher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-p.queue:
			p.publish(ev)
		case <-ctx.Done():
			p.closed.Store(true)
			for {
				select {
				case ev := <-p.queue:
					p.publish(ev)
				default:
					return
				}
			}
		}
	}
}

// publish serializa o evento; a chave é a conta para manter a ordem por partição.
func (p *KafkaPublisher) publish(ev events.RoundEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.fail(ev, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(ev.AccountID),
		Value: value,
		Time:  ev.Ts,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.fail(ev, err)
		return
	}

	p.log.Debug("published round event", zap.String("round_id", ev.RoundID), zap.String("state", ev.State))
	if p.OnPublished != nil {
		p.OnPublished(ev)
	}
}

func (p *KafkaPublisher) fail(ev events.RoundEvent, err error) {
	p.log.Error("failed to publish round event", zap.String("round_id", ev.RoundID), zap.Error(err))
	if p.OnError != nil {
		p.OnError(err)
	}
}

// Close finaliza o writer. Chamar depois que Run retornar.
func (p *KafkaPublisher) Close() error {
	p.closed.Store(true)
	return p.writer.Close()
}
