package dto

type WalletResponse struct {
	UserID       string `json:"userId"`
	WalletID     string `json:"walletId"`
	BalanceCents int64  `json:"balance_cents"`
}

type TransactionResponse struct {
	TxID        string            `json:"tx_id"`
	Type        string            `json:"type"`
	AmountCents int64             `json:"amount_cents"`
	RoundID     string            `json:"round_id,omitempty"`
	GameType    string            `json:"game_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
