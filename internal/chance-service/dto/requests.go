package dto

type BetRequest struct {
	Amount int64 `json:"amount"`
}

// SelectRequest escolhe a caixa (0-based) numa rodada de lucky box
type SelectRequest struct {
	Box *int `json:"box"`
}
