// Package settlement orquestra as rodadas: débito da aposta, sorteio do
// resultado, pagamento e estornos quando a persistência falha.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// Deps agrupa os colaboradores do Coordinator. Campos nil recebem defaults:
// sem notificação, debounce em memória, crypto/rand e relógio real.
type Deps struct {
	Store     AccountStore
	Catalog   AssetCatalog
	Notifier  Notifier
	Debouncer Debouncer
	RNG       engine.RandomSource
	Clock     Clock
	Log       *zap.Logger
	Hooks     Hooks
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = RealClock()
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Debouncer == nil {
		d.Debouncer = NewMemoryDebouncer(d.Clock.Now)
	}
	if d.RNG == nil {
		d.RNG = engine.CryptoSource()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return d
}

// Coordinator controla uma sessão (conta, jogo). Uma rodada por vez: todas as
// operações são serializadas pelo mutex, inclusive o I/O com o AccountStore.
type Coordinator struct {
	accountID string
	cfg       engine.ChanceConfig
	d         Deps
	log       *zap.Logger

	mu      sync.Mutex
	state   State
	round   *Round
	pool    []engine.Asset
	timer   Timer
	balance int64
	version int
	pending *compensation

	lastActive atomic.Int64
	closed     atomic.Bool
}

// NewCoordinator cria a sessão com a configuração carregada no início dela.
// A configuração não muda durante a vida da sessão.
func NewCoordinator(accountID string, cfg engine.ChanceConfig, d Deps) *Coordinator {
	d = d.withDefaults()
	c := &Coordinator{
		accountID: accountID,
		cfg:       cfg.Clone(),
		d:         d,
		log:       d.Log.With(zap.String("account_id", accountID), zap.String("game", string(cfg.GameType))),
		state:     StateIdle,
	}
	c.touch()
	return c
}

func (c *Coordinator) AccountID() string           { return c.accountID }
func (c *Coordinator) GameType() engine.GameType   { return c.cfg.GameType }
func (c *Coordinator) Config() engine.ChanceConfig { return c.cfg.Clone() }

// Balance é o último saldo devolvido pelo AccountStore.
func (c *Coordinator) Balance() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Refresh relê o saldo do AccountStore.
func (c *Coordinator) Refresh(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, err := c.d.Store.GetBalance(ctx, c.accountID)
	if err != nil {
		return c.balance, fmt.Errorf("%w: get balance: %v", ErrPersistence, err)
	}
	c.balance = bal
	return bal, nil
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IdleFor é o tempo desde a última operação da sessão.
func (c *Coordinator) IdleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastActive.Load()))
}

func (c *Coordinator) touch() { c.lastActive.Store(c.d.Clock.Now().UnixNano()) }

// PlaceBet debita a aposta e compromete o resultado da rodada. Um estorno
// pendente de rodada anterior é concluído antes.
func (c *Coordinator) PlaceBet(ctx context.Context, amount int64) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return c.snapshotLocked(), ErrSessionClosed
	}
	c.touch()

	if c.pending != nil {
		if err := c.resolvePendingLocked(ctx); err != nil {
			return c.snapshotLocked(), err
		}
	}
	if c.state != StateIdle {
		return c.snapshotLocked(), ErrRoundActive
	}
	if amount <= 0 || amount < c.cfg.MinBet || amount > c.cfg.MaxBet {
		return c.snapshotLocked(), fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidAmount, amount, c.cfg.MinBet, c.cfg.MaxBet)
	}
	if !c.allow(ctx) {
		return c.snapshotLocked(), ErrDuplicateSubmission
	}

	bal, err := c.d.Store.GetBalance(ctx, c.accountID)
	if err != nil {
		return c.snapshotLocked(), fmt.Errorf("%w: get balance: %v", ErrPersistence, err)
	}
	c.balance = bal
	if amount > bal {
		return c.snapshotLocked(), fmt.Errorf("%w: balance %d, bet %d", ErrInsufficientBalance, bal, amount)
	}

	now := c.d.Clock.Now()
	r := &Round{
		ID:        uuid.NewString(),
		GameType:  c.cfg.GameType,
		BetAmount: amount,
		StartTime: now,
		Box:       -1,
	}

	debit := c.newTx(TxDebit, amount, r, now, map[string]string{"state": string(StateBetPlaced)})
	newBal, err := c.d.Store.AdjustBalance(ctx, c.accountID, -amount, debit)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return c.snapshotLocked(), err
		}
		// o débito pode ter sido aplicado antes da falha
		c.round = r
		err = c.unwindLocked(ctx, "place_bet", err,
			compStep{confirm: true, delta: -amount, tx: debit},
			c.refundStep(r, "place_bet"),
		)
		return c.snapshotLocked(), err
	}
	c.balance = newBal
	r.Outcome = c.sampleLocked(ctx, amount)

	c.round = r
	c.transitionLocked(ctx, StateBetPlaced)
	if c.d.Hooks.OnBet != nil {
		c.d.Hooks.OnBet(c.cfg.GameType, amount)
	}

	if r.Outcome.Crash != nil {
		r.StartTime = c.d.Clock.Now()
		c.transitionLocked(ctx, StateRevealing)
		delay := engine.CrashDelay(r.Outcome.Crash.CrashPoint, c.cfg.RisePerSecond)
		id := r.ID
		c.timer = c.d.Clock.AfterFunc(delay, func() { c.onCrash(id) })
	}

	c.log.Debug("bet placed", zap.String("round_id", r.ID), zap.Int64("amount", amount))
	return c.snapshotLocked(), nil
}

// CashOut encerra uma rodada de crash no multiplicador atual da curva.
func (c *Coordinator) CashOut(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return c.snapshotLocked(), ErrSessionClosed
	}
	c.touch()

	if c.cfg.GameType != engine.GameCrash {
		return c.snapshotLocked(), ErrWrongGame
	}
	if c.state == StateSettled && c.round != nil && c.round.Result == events.ResultLoss {
		return c.snapshotLocked(), ErrRoundCrashed
	}
	if c.state != StateRevealing || c.round == nil {
		return c.snapshotLocked(), ErrNoActiveRound
	}

	r := c.round
	elapsed := c.d.Clock.Now().Sub(r.StartTime)
	mult, ok := engine.CashOutMultiplier(r.Outcome.Crash.CrashPoint, elapsed, c.cfg.RisePerSecond)
	if !ok {
		c.stopTimerLocked()
		if err := c.settleLocked(ctx, 0, events.ResultLoss, 0); err != nil {
			return c.snapshotLocked(), err
		}
		return c.snapshotLocked(), ErrRoundCrashed
	}
	if elapsed < c.cfg.MinRoundDuration {
		return c.snapshotLocked(), fmt.Errorf("%w: %s < %s", ErrCashOutTooEarly, elapsed, c.cfg.MinRoundDuration)
	}

	c.stopTimerLocked()
	err := c.settleLocked(ctx, engine.Payout(r.BetAmount, mult), events.ResultWin, mult)
	return c.snapshotLocked(), err
}

// SelectBox revela a caixa escolhida (resultado já comprometido no PlaceBet)
// e sorteia as demais só para exibição.
func (c *Coordinator) SelectBox(ctx context.Context, box int) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return c.snapshotLocked(), ErrSessionClosed
	}
	c.touch()

	if c.cfg.GameType != engine.GameLuckyBox {
		return c.snapshotLocked(), ErrWrongGame
	}
	if c.state != StateBetPlaced || c.round == nil {
		return c.snapshotLocked(), ErrNoActiveRound
	}
	if box < 0 || box >= c.cfg.BoxCount {
		return c.snapshotLocked(), fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidBox, box, c.cfg.BoxCount)
	}

	r := c.round
	r.Box = box
	c.transitionLocked(ctx, StateRevealing)

	loot := *r.Outcome.Loot
	others := engine.SampleDisplay(c.d.RNG, r.BetAmount, c.pool, c.cfg, c.cfg.BoxCount-1)
	r.Display = make([]engine.LootOutcome, 0, c.cfg.BoxCount)
	for i, j := 0, 0; i < c.cfg.BoxCount; i++ {
		if i == box {
			r.Display = append(r.Display, loot)
			continue
		}
		r.Display = append(r.Display, others[j])
		j++
	}

	result, payout := events.ResultLoss, int64(0)
	switch {
	case loot.Type == engine.LootAsset:
		result = events.ResultAsset
	case loot.Coins > 0:
		result, payout = events.ResultWin, loot.Coins
	}

	err := c.settleLocked(ctx, payout, result, loot.Multiplier)
	return c.snapshotLocked(), err
}

// Reset volta a sessão para idle. Uma rodada em aberto é resolvida antes:
//   - crash que já atingiu o crash point: perda;
//   - crash acima da duração mínima: cash-out no multiplicador atual;
//   - qualquer outra rodada não liquidada: aposta estornada.
//
// Se o estorno não conclui, a sessão fica em refund_pending e o próximo
// Reset (ou PlaceBet, ou o sweep) tenta de novo.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrSessionClosed
	}
	c.touch()
	return c.resetLocked(ctx)
}

func (c *Coordinator) resetLocked(ctx context.Context) error {
	c.stopTimerLocked()
	if c.pending != nil {
		return c.resolvePendingLocked(ctx)
	}

	if r := c.round; r != nil && (c.state == StateBetPlaced || c.state == StateRevealing) {
		var err error
		if r.Outcome.Crash != nil && c.state == StateRevealing {
			elapsed := c.d.Clock.Now().Sub(r.StartTime)
			mult, ok := engine.CashOutMultiplier(r.Outcome.Crash.CrashPoint, elapsed, c.cfg.RisePerSecond)
			switch {
			case !ok:
				err = c.settleLocked(ctx, 0, events.ResultLoss, 0)
			case elapsed >= c.cfg.MinRoundDuration:
				err = c.settleLocked(ctx, engine.Payout(r.BetAmount, mult), events.ResultWin, mult)
			default:
				err = c.refundLocked(ctx, "reset")
			}
		} else {
			err = c.refundLocked(ctx, "reset")
		}
		if err != nil {
			return err
		}
	}

	if c.state != StateIdle {
		c.transitionLocked(ctx, StateIdle)
	}
	c.round = nil
	c.pool = nil
	return nil
}

// closeIfIdle encerra a sessão se ela segue parada há pelo menos maxIdle.
// A rodada em aberto é resolvida antes; se isso falhar a sessão continua viva.
func (c *Coordinator) closeIfIdle(ctx context.Context, maxIdle time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return true, nil
	}
	if c.IdleFor(c.d.Clock.Now()) < maxIdle {
		return false, nil
	}
	if err := c.resetLocked(ctx); err != nil {
		return false, err
	}
	c.closed.Store(true)
	return true, nil
}

// Closed indica que a sessão foi encerrada pelo sweep.
func (c *Coordinator) Closed() bool { return c.closed.Load() }

// onCrash liquida como perda quando a curva atinge o crash point sem cash-out.
func (c *Coordinator) onCrash(roundID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.round == nil || c.round.ID != roundID || c.state != StateRevealing {
		return
	}
	c.timer = nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.settleLocked(ctx, 0, events.ResultLoss, 0); err != nil {
		c.log.Error("auto settle failed", zap.String("round_id", roundID), zap.Error(err))
	}
}

// settleLocked aplica o prêmio (moedas ou asset), grava o crédito e vai para settled.
// Perda não mexe em saldo nem grava transação: o débito já está no ledger.
// Qualquer falha de persistência desfaz o que foi aplicado e estorna a aposta.
func (c *Coordinator) settleLocked(ctx context.Context, payout int64, result string, mult float64) error {
	r := c.round
	now := c.d.Clock.Now()

	var asset *engine.Asset
	if r.Outcome.Loot != nil && r.Outcome.Loot.Type == engine.LootAsset {
		asset = r.Outcome.Loot.Asset
	}

	switch {
	case asset != nil:
		if c.d.Catalog == nil {
			return c.unwindLocked(ctx, "grant", errors.New("no asset catalog"), c.refundStep(r, "grant"))
		}
		revoke := compStep{assetID: asset.ID, roundID: r.ID}
		if err := c.d.Catalog.GrantAsset(ctx, c.accountID, asset.ID, r.ID); err != nil {
			return c.unwindLocked(ctx, "grant", err, revoke, c.refundStep(r, "grant"))
		}
		tx := c.newTx(TxCredit, 0, r, now, map[string]string{"result": result, "asset_id": asset.ID})
		if err := c.d.Store.AppendTransaction(ctx, c.accountID, tx); err != nil {
			return c.unwindLocked(ctx, "settle_append", err, revoke, c.refundStep(r, "settle_append"))
		}

	case payout > 0:
		meta := map[string]string{"result": result}
		if mult > 0 {
			meta["multiplier"] = strconv.FormatFloat(mult, 'f', 2, 64)
		}
		credit := c.newTx(TxCredit, payout, r, now, meta)
		newBal, err := c.d.Store.AdjustBalance(ctx, c.accountID, payout, credit)
		if err != nil {
			// crédito incerto: confirma (replay idempotente), estorna a aposta e reverte o crédito
			reversal := c.newTx(TxDebit, payout, r, now, map[string]string{"stage": "credit", "reverses": credit.ID})
			return c.unwindLocked(ctx, "credit", err,
				compStep{confirm: true, delta: payout, tx: credit},
				c.refundStep(r, "credit"),
				compStep{delta: -payout, tx: reversal},
			)
		}
		c.balance = newBal
	}

	r.Payout = payout
	r.Result = result
	r.Multiplier = mult
	r.SettledAt = now
	c.transitionLocked(ctx, StateSettled)
	if c.d.Hooks.OnSettled != nil {
		c.d.Hooks.OnSettled(c.cfg.GameType, result, payout)
	}
	return nil
}

// compStep é um passo de compensação. Passos de saldo carregam a própria
// transação, de modo que repetir o passo é seguro.
type compStep struct {
	confirm bool // replay de uma operação de resultado incerto
	delta   int64
	tx      Transaction
	assetID string // revogação de asset
	roundID string
}

// compensation guarda os passos que faltam para desfazer uma rodada.
type compensation struct {
	stage string
	steps []compStep
	next  int
}

func (c *Coordinator) refundStep(r *Round, stage string) compStep {
	tx := c.newTx(TxRefund, r.BetAmount, r, c.d.Clock.Now(), map[string]string{"stage": stage})
	return compStep{delta: r.BetAmount, tx: tx}
}

// unwindLocked registra a compensação e tenta concluí-la na hora. Sempre
// devolve ErrPersistence.
func (c *Coordinator) unwindLocked(ctx context.Context, stage string, cause error, steps ...compStep) error {
	c.log.Warn("settlement failed, unwinding", zap.String("stage", stage), zap.String("round_id", c.round.ID), zap.Error(cause))
	c.pending = &compensation{stage: stage, steps: steps}
	if err := c.resolvePendingLocked(ctx); err != nil {
		return fmt.Errorf("%w (cause: %v)", err, cause)
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, stage, cause)
}

// refundLocked estorna a aposta da rodada em aberto.
func (c *Coordinator) refundLocked(ctx context.Context, stage string) error {
	c.pending = &compensation{stage: stage, steps: []compStep{c.refundStep(c.round, stage)}}
	return c.resolvePendingLocked(ctx)
}

// resolvePendingLocked executa os passos que faltam da compensação. Concluída,
// a rodada fica como refund e a sessão volta para idle. Se um passo falhar a
// sessão fica em refund_pending, com a rodada e os passos restantes guardados.
func (c *Coordinator) resolvePendingLocked(ctx context.Context) error {
	p := c.pending
	for p.next < len(p.steps) {
		s := p.steps[p.next]
		err := c.applyStepLocked(ctx, s)
		if err != nil && s.confirm && errors.Is(err, ErrInsufficientBalance) {
			// a operação original nunca foi aplicada: não há o que desfazer
			p.next = len(p.steps)
			break
		}
		if err != nil {
			c.log.Error("compensation failed",
				zap.String("stage", p.stage),
				zap.String("round_id", c.round.ID),
				zap.Int("step", p.next),
				zap.Error(err),
			)
			c.compensated(p.stage, false)
			if c.state != StateRefundPending {
				c.transitionLocked(ctx, StateRefundPending)
			}
			return fmt.Errorf("%w: %s: refund pending: %v", ErrPersistence, p.stage, err)
		}
		p.next++
	}

	c.pending = nil
	c.compensated(p.stage, true)
	c.round.Result = events.ResultRefund
	if c.state != StateIdle {
		c.transitionLocked(ctx, StateIdle)
	}
	c.round = nil
	c.pool = nil
	return nil
}

func (c *Coordinator) applyStepLocked(ctx context.Context, s compStep) error {
	if s.assetID != "" {
		if c.d.Catalog == nil {
			return nil
		}
		return c.d.Catalog.RevokeAsset(ctx, c.accountID, s.assetID, s.roundID)
	}
	bal, err := c.d.Store.AdjustBalance(ctx, c.accountID, s.delta, s.tx)
	if err != nil {
		return err
	}
	c.balance = bal
	return nil
}

func (c *Coordinator) compensated(stage string, ok bool) {
	if c.d.Hooks.OnCompensation != nil {
		c.d.Hooks.OnCompensation(c.cfg.GameType, stage, ok)
	}
}

func (c *Coordinator) sampleLocked(ctx context.Context, amount int64) engine.Outcome {
	if c.cfg.GameType == engine.GameLuckyBox {
		c.pool = c.assetPool(ctx, amount)
		return engine.LootResult(engine.SampleLoot(c.d.RNG, amount, c.pool, c.cfg))
	}
	return engine.CrashResult(engine.SampleCrash(c.d.RNG, c.cfg))
}

// assetPool busca os assets na faixa de preço da aposta. Catálogo indisponível
// resulta em pool vazio, o que zera a chance de asset.
func (c *Coordinator) assetPool(ctx context.Context, amount int64) []engine.Asset {
	if c.d.Catalog == nil || c.cfg.AssetChance <= 0 {
		return nil
	}
	pool, err := c.d.Catalog.ListAssets(ctx, engine.AssetPriceRange(amount, c.cfg))
	if err != nil {
		c.log.Warn("asset catalog unavailable", zap.Error(err))
		return nil
	}
	return pool
}

func (c *Coordinator) allow(ctx context.Context) bool {
	if c.cfg.DebounceWindow <= 0 {
		return true
	}
	ok, err := c.d.Debouncer.Allow(ctx, c.accountID+":"+string(c.cfg.GameType), c.cfg.DebounceWindow)
	if err != nil {
		c.log.Warn("debounce check failed", zap.Error(err))
		return true
	}
	if !ok && c.d.Hooks.OnDuplicate != nil {
		c.d.Hooks.OnDuplicate(c.cfg.GameType)
	}
	return ok
}

func (c *Coordinator) transitionLocked(ctx context.Context, s State) {
	c.state = s
	c.version++
	c.d.Notifier.Notify(ctx, c.snapshotLocked().toEvent(c.version, c.d.Clock.Now()))
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) newTx(t TxType, amount int64, r *Round, ts time.Time, meta map[string]string) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Type:      t,
		Amount:    amount,
		RoundID:   r.ID,
		GameType:  r.GameType,
		Timestamp: ts,
		Metadata:  meta,
	}
}
