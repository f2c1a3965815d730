package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}

// AdjustRequest aplica um delta (positivo ou negativo) e grava a transação
// no ledger na mesma operação. Reenvio com o mesmo tx_id não aplica de novo.
// Saldo nunca fica negativo: o delta é rejeitado com 409.
type AdjustRequest struct {
	UserID     string            `json:"userId"`
	DeltaCents int64             `json:"delta_cents"`
	TxID       string            `json:"tx_id"`
	Type       string            `json:"type"` // debit (delta < 0) | credit | refund (delta > 0)
	RoundID    string            `json:"round_id,omitempty"`
	GameType   string            `json:"game_type,omitempty"`
	Timestamp  string            `json:"timestamp,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// TransactionRequest acrescenta um registro ao ledger (somente inserção)
type TransactionRequest struct {
	UserID      string            `json:"userId"`
	TxID        string            `json:"tx_id"`
	Type        string            `json:"type"` // debit | credit | refund
	AmountCents int64             `json:"amount_cents"`
	RoundID     string            `json:"round_id,omitempty"`
	GameType    string            `json:"game_type,omitempty"`
	Timestamp   string            `json:"timestamp,omitempty"` // RFC3339
	Metadata    map[string]string `json:"metadata,omitempty"`
}
