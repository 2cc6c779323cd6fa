package jobs

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/tokens"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	pkgrpc "github.com/goran-ethernal/StarkIndexor/pkg/rpc"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	entrypointEarned          = "earned"
	entrypointGetRewardTokens = "get_reward_tokens"
	entrypointBalanceOf       = "balance_of"
)

// ScoringJob recomputes the progression score of every agent in every active game session.
type ScoringJob struct {
	store       *store.Store
	caller      pkgrpc.Caller
	cfg         config.ScoringConfig
	concurrency int
	now         func() time.Time
	log         *logger.Logger
}

var _ Job = (*ScoringJob)(nil)

// NewScoringJob creates the job. A nil now uses the wall clock.
func NewScoringJob(
	st *store.Store,
	caller pkgrpc.Caller,
	cfg config.ScoringConfig,
	concurrency int,
	now func() time.Time,
	log *logger.Logger,
) *ScoringJob {
	cfg.ApplyDefaults()
	if concurrency <= 0 {
		concurrency = 1
	}
	if now == nil {
		now = time.Now
	}

	return &ScoringJob{
		store:       st,
		caller:      caller,
		cfg:         cfg,
		concurrency: concurrency,
		now:         now,
		log:         log.WithComponent(common.ComponentScoringJob),
	}
}

func (j *ScoringJob) Name() string {
	return common.ComponentScoringJob
}

// sessionScope is everything an agent of one session is scored against.
type sessionScope struct {
	session *store.GameSession
	agents  []*store.Agent
	pairs   []*store.Pair
	farms   []*store.Farm
}

// Run scores every agent of the active sessions. Token metadata is resolved once per run.
func (j *ScoringJob) Run(ctx context.Context) error {
	cache := tokens.NewCache(tokens.NewResolver(j.caller, j.log))

	scopes, err := j.loadScopes(ctx)
	if err != nil {
		return err
	}

	scored, failed := 0, 0
	for _, scope := range scopes {
		ok, bad, err := j.scoreSession(ctx, cache, scope)
		scored += ok
		failed += bad
		if err != nil {
			return err
		}
	}

	j.log.Infow("agent scores updated",
		"sessions", len(scopes), "scored", scored, "failed", failed, "tokens_resolved", cache.Len())

	return nil
}

func (j *ScoringJob) loadScopes(ctx context.Context) ([]sessionScope, error) {
	var scopes []sessionScope

	err := j.store.View(ctx, func(tx *store.Tx) error {
		sessions, err := tx.ListActiveGameSessions()
		if err != nil {
			return fmt.Errorf("failed to list active sessions: %w", err)
		}

		for _, s := range sessions {
			scope := sessionScope{session: s}
			if scope.agents, err = tx.ListAgents(s.Address); err != nil {
				return fmt.Errorf("failed to list agents of %s: %w", s.Address, err)
			}
			if scope.pairs, err = tx.ListPairsBySession(s.GameSessionIndex); err != nil {
				return fmt.Errorf("failed to list pairs of session %d: %w", s.GameSessionIndex, err)
			}
			if scope.farms, err = tx.ListFarmsBySession(s.GameSessionIndex); err != nil {
				return fmt.Errorf("failed to list farms of session %d: %w", s.GameSessionIndex, err)
			}
			scopes = append(scopes, scope)
		}

		return nil
	})

	return scopes, err
}

// scoreSession scores the agents of one session in parallel. It stops handing out agents
// once ctx is cancelled and then returns the context error.
func (j *ScoringJob) scoreSession(ctx context.Context, cache *tokens.Cache, scope sessionScope) (int, int, error) {
	var (
		g      errgroup.Group
		scored = make([]bool, len(scope.agents))
	)
	g.SetLimit(j.concurrency)

	for i, agent := range scope.agents {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			if _, err := j.scoreAgent(ctx, cache, scope, agent); err != nil {
				agentScoredInc(false)
				metrics.ErrorsInc(common.ComponentScoringJob, "error")
				j.log.Errorw("failed to score agent",
					"agent", agent.Address, "session", scope.session.Address, "error", err)
				return nil
			}

			agentScoredInc(true)
			scored[i] = true
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, s := range scored {
		if s {
			ok++
		}
	}

	return ok, len(scope.agents) - ok, ctx.Err()
}

// scoreAgent computes and stores the score of one agent.
func (j *ScoringJob) scoreAgent(
	ctx context.Context, cache *tokens.Cache, scope sessionScope, agent *store.Agent,
) (*store.AgentScore, error) {
	now := j.now().Unix()

	breakdown := store.ScoreBreakdown{
		ResourceBalances:     make(map[string]store.BalanceScore),
		LPPositions:          make(map[string]store.BalanceScore),
		FarmingActivities:    make(map[string]store.FarmingActivity),
		CalculationTimestamp: now,
	}

	resource := j.resourceScore(ctx, cache, scope, agent.Address, breakdown.ResourceBalances)
	lp := j.lpScore(ctx, cache, scope, agent.Address, breakdown.LPPositions)
	farming, err := j.farmingScore(ctx, cache, scope, agent.Address, breakdown.FarmingActivities)
	if err != nil {
		return nil, err
	}

	score := &store.AgentScore{
		AgentAddress:         agent.Address,
		SessionAddress:       agent.SessionAddress,
		AgentIndex:           agent.AgentIndex,
		ResourceBalanceScore: resource.InexactFloat64(),
		LPPositionScore:      lp.InexactFloat64(),
		FarmingScore:         farming.InexactFloat64(),
		TotalScore:           resource.Add(lp).Add(farming).InexactFloat64(),
		ScoreBreakdown:       breakdown,
		LastCalculatedAt:     now,
	}

	if err := j.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.UpsertAgentScore(score)
	}); err != nil {
		return nil, err
	}

	j.log.Debugw("agent scored",
		"agent", agent.Address, "session", agent.SessionAddress,
		"resource", score.ResourceBalanceScore, "lp", score.LPPositionScore,
		"farming", score.FarmingScore, "total", score.TotalScore)

	return score, nil
}

// resourceScore weighs the wallet balance of every token traded or paid out in the session.
func (j *ScoringJob) resourceScore(
	ctx context.Context, cache *tokens.Cache, scope sessionScope, agent string, out map[string]store.BalanceScore,
) decimal.Decimal {
	total := decimal.Zero

	for _, token := range sessionTokens(scope) {
		md := cache.Get(ctx, token)
		balance := j.balanceOf(ctx, cache, token, agent)
		if balance.Sign() <= 0 {
			continue
		}

		weight := j.tokenWeight(md.Symbol)
		score := weighted(balance, md.Decimals, weight)
		total = total.Add(score)

		out[token] = balanceScore(md.Symbol, balance, md.Decimals, weight, score)
	}

	return total
}

// lpScore weighs the LP token balance held in every pair of the session.
func (j *ScoringJob) lpScore(
	ctx context.Context, cache *tokens.Cache, scope sessionScope, agent string, out map[string]store.BalanceScore,
) decimal.Decimal {
	total := decimal.Zero

	for _, pair := range scope.pairs {
		balance := j.balanceOf(ctx, cache, pair.Address, agent)
		if balance.Sign() <= 0 {
			continue
		}

		decimals := j.cfg.DefaultLPDecimals
		if md := cache.Get(ctx, pair.Address); md.Resolved {
			decimals = md.Decimals
		}

		key := pair.Token0Symbol + "/" + pair.Token1Symbol
		weight := j.poolWeight(pair.Token0Symbol, pair.Token1Symbol)
		score := weighted(balance, decimals, weight)
		total = total.Add(score)

		out[pair.Address] = balanceScore(key, balance, decimals, weight, score)
	}

	return total
}

// farmingScore weighs the pending rewards of every farm of the session the agent staked in.
func (j *ScoringJob) farmingScore(
	ctx context.Context, cache *tokens.Cache, scope sessionScope, agent string, out map[string]store.FarmingActivity,
) (decimal.Decimal, error) {
	total := decimal.Zero

	for _, farm := range scope.farms {
		var staked bool
		err := j.store.View(ctx, func(tx *store.Tx) error {
			var err error
			staked, err = tx.AgentStakeExists(farm.Address, agent)
			return err
		})
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to check stake in farm %s: %w", farm.Address, err)
		}
		if !staked {
			continue
		}

		activity := store.FarmingActivity{Rewards: make(map[string]store.BalanceScore)}
		farmTotal := decimal.Zero

		for _, token := range j.rewardTokens(ctx, farm) {
			earned := j.earned(ctx, farm.Address, agent, token)
			if earned.Sign() <= 0 {
				continue
			}

			md := cache.Get(ctx, token)
			weight := j.tokenWeight(md.Symbol)
			score := weighted(earned, md.Decimals, weight)
			farmTotal = farmTotal.Add(score)

			activity.Rewards[token] = balanceScore(md.Symbol, earned, md.Decimals, weight, score)
		}

		activity.Score = farmTotal.InexactFloat64()
		out[farm.Address] = activity
		total = total.Add(farmTotal)
	}

	return total, nil
}

func (j *ScoringJob) balanceOf(ctx context.Context, cache *tokens.Cache, token, account string) *big.Int {
	balance, err := cache.Resolver().BalanceOf(ctx, token, account)
	if err != nil {
		scoringCallFailureInc(entrypointBalanceOf)
		j.log.Debugw("balance lookup failed, counting zero", "token", token, "account", account, "error", err)
		return new(big.Int)
	}
	return balance
}

// rewardTokens asks the farm for its reward tokens and falls back to the indexed list.
func (j *ScoringJob) rewardTokens(ctx context.Context, farm *store.Farm) []string {
	list, err := j.callRewardTokens(ctx, farm.Address)
	if err != nil {
		scoringCallFailureInc(entrypointGetRewardTokens)
		j.log.Debugw("get_reward_tokens failed, using indexed reward tokens",
			"farm", farm.Address, "error", err)
		return farm.RewardTokens
	}
	return list
}

func (j *ScoringJob) callRewardTokens(ctx context.Context, farm string) ([]string, error) {
	if j.caller == nil {
		return nil, errors.New("no rpc caller configured")
	}

	addr, err := starknet.ParseFelt(farm)
	if err != nil {
		return nil, err
	}

	res, err := j.caller.Call(ctx, addr, entrypointGetRewardTokens, nil)
	if err != nil {
		return nil, err
	}

	return decodeAddressArray(res)
}

// decodeAddressArray decodes a Cairo Array<ContractAddress>: a length followed by the items.
func decodeAddressArray(res []starknet.Felt) ([]string, error) {
	if len(res) == 0 {
		return nil, starknet.ErrShortPayload
	}

	n, ok := res[0].Uint64()
	if !ok || n > uint64(len(res)-1) {
		return nil, fmt.Errorf("invalid array length %s for %d felts", res[0].Decimal(), len(res)-1)
	}

	out := make([]string, 0, n)
	for _, f := range res[1 : 1+n] {
		out = append(out, f.Hex())
	}
	return out, nil
}

func (j *ScoringJob) earned(ctx context.Context, farm, agent, token string) *big.Int {
	v, err := j.callEarned(ctx, farm, agent, token)
	if err != nil {
		scoringCallFailureInc(entrypointEarned)
		j.log.Debugw("earned lookup failed, counting zero",
			"farm", farm, "agent", agent, "token", token, "error", err)
		return new(big.Int)
	}
	return v
}

func (j *ScoringJob) callEarned(ctx context.Context, farm, agent, token string) (*big.Int, error) {
	if j.caller == nil {
		return nil, errors.New("no rpc caller configured")
	}

	calldata := make([]starknet.Felt, 0, 2) //nolint:mnd
	for _, s := range []string{agent, token} {
		f, err := starknet.ParseFelt(s)
		if err != nil {
			return nil, err
		}
		calldata = append(calldata, f)
	}

	farmAddr, err := starknet.ParseFelt(farm)
	if err != nil {
		return nil, err
	}

	res, err := j.caller.Call(ctx, farmAddr, entrypointEarned, calldata)
	if err != nil {
		return nil, err
	}

	return starknet.U256FromFelts(res)
}

func (j *ScoringJob) tokenWeight(symbol string) float64 {
	if w, ok := j.cfg.TokenWeights[symbol]; ok {
		return w
	}
	return j.cfg.DefaultTokenWeight
}

// poolWeight looks the pool up in either token order.
func (j *ScoringJob) poolWeight(symbol0, symbol1 string) float64 {
	if w, ok := j.cfg.PoolWeights[symbol0+"/"+symbol1]; ok {
		return w
	}
	if w, ok := j.cfg.PoolWeights[symbol1+"/"+symbol0]; ok {
		return w
	}
	return j.cfg.DefaultPoolWeight
}

// sessionTokens returns token0/token1 of every pair and the reward tokens of every farm,
// deduplicated in first-seen order.
func sessionTokens(scope sessionScope) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(token string) {
		if token == "" {
			return
		}
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}

	for _, p := range scope.pairs {
		add(p.Token0Address)
		add(p.Token1Address)
	}
	for _, f := range scope.farms {
		for _, token := range f.RewardTokens {
			add(token)
		}
	}

	return out
}

// weighted returns amount / 10^decimals * weight.
func weighted(amount *big.Int, decimals uint8, weight float64) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -int32(decimals)).Mul(decimal.NewFromFloat(weight))
}

func balanceScore(symbol string, amount *big.Int, decimals uint8, weight float64, score decimal.Decimal) store.BalanceScore {
	return store.BalanceScore{
		Symbol:   symbol,
		Balance:  amount.String(),
		Decimals: decimals,
		Weight:   weight,
		Score:    score.InexactFloat64(),
	}
}
