package publisher

import (
	"context"

	"github.com/radieske/chance-engine/internal/chance-service/settlement"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// Fanout repassa cada evento para todos os notifiers, em ordem
type Fanout []settlement.Notifier

func (f Fanout) Notify(ctx context.Context, ev events.RoundEvent) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}
