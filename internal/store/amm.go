package store

import "math/big"

func (tx *Tx) GetAmmFactory(address string) (*AmmFactory, error) {
	return getOne[AmmFactory](tx.q, `SELECT * FROM amm_factories WHERE address = ?`, address)
}

func (tx *Tx) SaveAmmFactory(f *AmmFactory) error {
	return tx.save(TableAmmFactories, f, &f.CreatedAt, &f.UpdatedAt)
}

func (tx *Tx) GetPair(address string) (*Pair, error) {
	return getOne[Pair](tx.q, `SELECT * FROM pairs WHERE address = ?`, address)
}

func (tx *Tx) PairExists(address string) (bool, error) {
	return tx.exists(`SELECT 1 FROM pairs WHERE address = ?`, address)
}

func (tx *Tx) SavePair(p *Pair) error {
	return tx.save(TablePairs, p, &p.CreatedAt, &p.UpdatedAt)
}

// ListPairsBySession returns the pairs bound to a game session index.
func (tx *Tx) ListPairsBySession(sessionID uint64) ([]*Pair, error) {
	return getAll[Pair](tx.q, `SELECT * FROM pairs WHERE game_session_id = ? ORDER BY id ASC`, sessionID)
}

func (tx *Tx) ListPairs() ([]*Pair, error) {
	return getAll[Pair](tx.q, `SELECT * FROM pairs ORDER BY id ASC`)
}

// GetLiquidityPosition returns the position of agent in pair.
func (tx *Tx) GetLiquidityPosition(pair, agent string) (*LiquidityPosition, error) {
	return getOne[LiquidityPosition](tx.q,
		`SELECT * FROM liquidity_positions WHERE pair_address = ? AND agent_address = ?`, pair, agent)
}

// NewLiquidityPosition returns an empty, unsaved position.
func NewLiquidityPosition(pair, agent string) *LiquidityPosition {
	return &LiquidityPosition{
		PairAddress:       pair,
		AgentAddress:      agent,
		Liquidity:         new(big.Int),
		DepositsToken0:    new(big.Int),
		DepositsToken1:    new(big.Int),
		WithdrawalsToken0: new(big.Int),
		WithdrawalsToken1: new(big.Int),
	}
}

func (tx *Tx) SaveLiquidityPosition(p *LiquidityPosition) error {
	return tx.save(TableLiquidityPositions, p, &p.CreatedAt, &p.UpdatedAt)
}

func (tx *Tx) ListLiquidityPositions(pair string) ([]*LiquidityPosition, error) {
	return getAll[LiquidityPosition](tx.q,
		`SELECT * FROM liquidity_positions WHERE pair_address = ? ORDER BY id ASC`, pair)
}

func (tx *Tx) InsertLiquidityEvent(e *LiquidityEvent) error {
	return tx.insert(TableLiquidityEvents, e)
}

func (tx *Tx) ListLiquidityEvents(pair string) ([]*LiquidityEvent, error) {
	return getAll[LiquidityEvent](tx.q,
		`SELECT * FROM liquidity_events WHERE pair_address = ? ORDER BY id ASC`, pair)
}

func (tx *Tx) InsertSwapEvent(e *SwapEvent) error {
	return tx.insert(TableSwapEvents, e)
}

func (tx *Tx) ListSwapEvents(pair string) ([]*SwapEvent, error) {
	return getAll[SwapEvent](tx.q, `SELECT * FROM swap_events WHERE pair_address = ? ORDER BY id ASC`, pair)
}
