package metrics

import "github.com/prometheus/client_golang/prometheus"

// Métricas do chance-service. Ligadas aos hooks do coordenador no main.
var (
	BetsPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chance_bets_placed_total",
		Help: "apostas aceitas por jogo",
	}, []string{"game"})

	BetAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chance_bet_amount_total",
		Help: "moedas apostadas por jogo",
	}, []string{"game"})

	RoundsSettled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chance_rounds_settled_total",
		Help: "rodadas liquidadas por jogo e resultado",
	}, []string{"game", "result"})

	Payouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chance_payout_amount_total",
		Help: "moedas pagas por jogo",
	}, []string{"game"})

	Compensations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chance_compensations_total",
		Help: "estornos por etapa e status (ok|failed)",
	}, []string{"game", "stage", "status"})

	ConfigFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chance_config_fallbacks_total",
		Help: "cargas de configuração que caíram no default",
	}, []string{"game"})

	DuplicateSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chance_duplicate_submissions_total",
		Help: "apostas rejeitadas pelo debounce",
	}, []string{"game"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chance_active_sessions",
		Help: "sessões (conta, jogo) em memória",
	})

	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chance_round_events_dropped_total",
		Help: "eventos de rodada descartados (fila cheia ou erro no kafka)",
	})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chance_ws_connections",
		Help: "clientes WebSocket conectados",
	})
)

// RegisterChance registra as métricas do chance-service no registry padrão.
func RegisterChance() {
	prometheus.MustRegister(
		BetsPlaced, BetAmount, RoundsSettled, Payouts, Compensations,
		ConfigFallbacks, DuplicateSubmissions, ActiveSessions, EventsDropped, WSConnections,
	)
}

// Métricas do round-events-worker, por estágio (mesmo padrão de callbacks do processor)
var (
	WorkerConsumed  = prometheus.NewCounter(prometheus.CounterOpts{Name: "round_events_consumed_total", Help: "mensagens consumidas"})
	WorkerPersisted = prometheus.NewCounter(prometheus.CounterOpts{Name: "round_events_db_writes_total", Help: "upserts em round_history"})
	WorkerBroadcast = prometheus.NewCounter(prometheus.CounterOpts{Name: "round_events_broadcast_total", Help: "publicações no redis pub/sub"})
	WorkerErrors    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "round_events_errors_total", Help: "erros por estágio"}, []string{"stage"})
)

func RegisterWorker() {
	prometheus.MustRegister(WorkerConsumed, WorkerPersisted, WorkerBroadcast, WorkerErrors)
}
