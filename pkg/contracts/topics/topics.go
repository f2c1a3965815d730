package topics

const (
	// Rodadas
	RoundEvents = "round_events"

	// DLQs
	RoundEventsDLQ = "round_events_dlq"

	// Canal Redis Pub/Sub usado pelo ws do chance-service
	RoundEventsBroadcast = "round_events_broadcast"
)
