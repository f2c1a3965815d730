package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/dto"
	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/shared/auth"
)

// APIError é uma resposta de erro do chance-service
type APIError struct {
	Status int
	Code   string
	Msg    string
	Round  *dto.RoundResponse
}

func (e *APIError) Error() string { return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Msg) }

// Bot joga pela API HTTP como uma conta, igual a um cliente real
type Bot struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewBot(baseURL, token string) *Bot {
	return &Bot{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (b *Bot) do(ctx context.Context, method, path string, body any) (dto.RoundResponse, error) {
	var out dto.RoundResponse
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return out, err
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, rd)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.Token)

	res, err := b.HTTP.Do(req)
	if err != nil {
		return out, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return out, &APIError{Status: res.StatusCode, Code: e.Code, Msg: e.Error, Round: e.Round}
	}
	err = json.NewDecoder(res.Body).Decode(&out)
	return out, err
}

func gamePath(gt engine.GameType, op string) string {
	return "/v1/games/" + string(gt) + "/" + op
}

// reset devolve a sessão para idle; após um erro no meio da rodada o
// servidor estorna a aposta.
func (b *Bot) reset(ctx context.Context, gt engine.GameType) error {
	_, err := b.do(ctx, http.MethodPost, gamePath(gt, "reset"), nil)
	return err
}

// PlayLuckyBox aposta, escolhe a caixa e volta para idle
func (b *Bot) PlayLuckyBox(ctx context.Context, bet int64, box int) (dto.RoundResponse, error) {
	if _, err := b.do(ctx, http.MethodPost, gamePath(engine.GameLuckyBox, "bets"), dto.BetRequest{Amount: bet}); err != nil {
		return dto.RoundResponse{}, err
	}
	res, err := b.do(ctx, http.MethodPost, gamePath(engine.GameLuckyBox, "select"), dto.SelectRequest{Box: &box})
	if err != nil {
		_ = b.reset(ctx, engine.GameLuckyBox)
		return res, err
	}
	return res, b.reset(ctx, engine.GameLuckyBox)
}

// PlayCrash aposta e acompanha a curva até target; round_crashed é resultado, não erro.
func (b *Bot) PlayCrash(ctx context.Context, bet int64, target float64, poll time.Duration) (dto.RoundResponse, error) {
	res, err := b.do(ctx, http.MethodPost, gamePath(engine.GameCrash, "bets"), dto.BetRequest{Amount: bet})
	if err != nil {
		return res, err
	}

	for res.State == "revealing" && res.Multiplier < target {
		select {
		case <-ctx.Done():
			_ = b.reset(context.Background(), engine.GameCrash)
			return res, ctx.Err()
		case <-time.After(poll):
		}
		if res, err = b.do(ctx, http.MethodGet, gamePath(engine.GameCrash, "round"), nil); err != nil {
			_ = b.reset(ctx, engine.GameCrash)
			return res, err
		}
	}

	if res.State == "revealing" {
		res, err = b.do(ctx, http.MethodPost, gamePath(engine.GameCrash, "cashout"), nil)
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Code == "round_crashed" && apiErr.Round != nil:
			res, err = *apiErr.Round, nil
		case err != nil:
			_ = b.reset(ctx, engine.GameCrash)
			return res, err
		}
	}
	return res, b.reset(ctx, engine.GameCrash)
}

// FleetConfig descreve uma carga de bots contra um chance-service
type FleetConfig struct {
	BaseURL string
	Secret  string // assina um token por bot
	Bots    int
	Rounds  int // por bot
	Game    engine.GameType
	Bet     int64
	Target  float64 // crash
	Boxes   int     // lucky box, default 3
	Poll    time.Duration
}

// FleetReport soma o que os bots viram pela API
type FleetReport struct {
	Rounds  int            `json:"rounds"`
	Wagered int64          `json:"wagered"`
	Paid    int64          `json:"paid"`
	RTP     float64        `json:"rtp"`
	Results map[string]int `json:"results"`
	Errors  map[string]int `json:"errors,omitempty"`
	Elapsed time.Duration  `json:"elapsed_ns"`
}

// RunFleet roda cfg.Bots contas em paralelo, cada uma com cfg.Rounds rodadas.
// Erros da API são contados por código e o bot segue para a próxima rodada.
func RunFleet(ctx context.Context, cfg FleetConfig, log *zap.Logger) (FleetReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Bots <= 0 || cfg.Rounds <= 0 {
		return FleetReport{}, fmt.Errorf("bots and rounds must be positive")
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 50 * time.Millisecond
	}
	if cfg.Boxes <= 0 {
		cfg.Boxes = 3
	}

	rep := FleetReport{Results: map[string]int{}, Errors: map[string]int{}}
	var mu sync.Mutex
	record := func(res dto.RoundResponse, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			code := "transport"
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				code = apiErr.Code
			}
			rep.Errors[code]++
			return
		}
		rep.Rounds++
		rep.Wagered += res.BetAmount
		rep.Paid += res.Payout
		rep.Results[res.Result]++
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < cfg.Bots; i++ {
		acct := fmt.Sprintf("bot-%03d", i)
		tok, err := auth.Sign(cfg.Secret, acct, time.Hour)
		if err != nil {
			return rep, err
		}
		bot := NewBot(cfg.BaseURL, tok)

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for r := 0; r < cfg.Rounds && ctx.Err() == nil; r++ {
				var res dto.RoundResponse
				var err error
				if cfg.Game == engine.GameCrash {
					res, err = bot.PlayCrash(ctx, cfg.Bet, cfg.Target, cfg.Poll)
				} else {
					res, err = bot.PlayLuckyBox(ctx, cfg.Bet, (i+r)%cfg.Boxes)
				}
				if err != nil {
					log.Debug("bot round failed", zap.String("account_id", acct), zap.Error(err))
				}
				record(res, err)
			}
		}(i)
	}
	wg.Wait()

	rep.Elapsed = time.Since(start)
	rep.RTP = ratio(rep.Paid, rep.Wagered)
	if len(rep.Errors) == 0 {
		rep.Errors = nil
	}
	return rep, ctx.Err()
}
