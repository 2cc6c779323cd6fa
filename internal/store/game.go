package store

import (
	"encoding/json"
	"fmt"
)

func (tx *Tx) GetGameFactory(address string) (*GameFactory, error) {
	return getOne[GameFactory](tx.q, `SELECT * FROM game_factories WHERE address = ?`, address)
}

func (tx *Tx) SaveGameFactory(f *GameFactory) error {
	return tx.save(TableGameFactories, f, &f.CreatedAt, &f.UpdatedAt)
}

func (tx *Tx) GetGameSession(address string) (*GameSession, error) {
	return getOne[GameSession](tx.q, `SELECT * FROM game_sessions WHERE address = ?`, address)
}

func (tx *Tx) SaveGameSession(s *GameSession) error {
	return tx.save(TableGameSessions, s, &s.CreatedAt, &s.UpdatedAt)
}

func (tx *Tx) ListGameSessions() ([]*GameSession, error) {
	return getAll[GameSession](tx.q, `SELECT * FROM game_sessions ORDER BY id ASC`)
}

// ListActiveGameSessions returns the sessions that are neither suspended nor over.
func (tx *Tx) ListActiveGameSessions() ([]*GameSession, error) {
	return getAll[GameSession](tx.q,
		`SELECT * FROM game_sessions WHERE game_suspended = 0 AND game_over = 0 ORDER BY id ASC`)
}

// SetCurrentWindowIndex updates only the job-derived window index of a session.
func (tx *Tx) SetCurrentWindowIndex(session string, index uint64) error {
	_, err := tx.q.Exec(`UPDATE game_sessions SET current_window_index = ?, updated_at = ? WHERE address = ?`,
		index, tx.Now(), session)
	if err != nil {
		return fmt.Errorf("failed to set current window index: %w", err)
	}

	return nil
}

func (tx *Tx) GetAgent(address, session string) (*Agent, error) {
	return getOne[Agent](tx.q, `SELECT * FROM agents WHERE address = ? AND session_address = ?`, address, session)
}

// GetAgentByIndex uses the (session_address, agent_index) unique index.
func (tx *Tx) GetAgentByIndex(session string, index uint64) (*Agent, error) {
	return getOne[Agent](tx.q, `SELECT * FROM agents WHERE session_address = ? AND agent_index = ?`, session, index)
}

func (tx *Tx) SaveAgent(a *Agent) error {
	return tx.save(TableAgents, a, &a.CreatedAt, &a.UpdatedAt)
}

func (tx *Tx) ListAgents(session string) ([]*Agent, error) {
	return getAll[Agent](tx.q, `SELECT * FROM agents WHERE session_address = ? ORDER BY agent_index ASC`, session)
}

func (tx *Tx) GetStakeWindow(session string, index uint64) (*StakeWindow, error) {
	return getOne[StakeWindow](tx.q,
		`SELECT * FROM stake_windows WHERE session_address = ? AND window_index = ?`, session, index)
}

func (tx *Tx) SaveStakeWindow(w *StakeWindow) error {
	return tx.save(TableStakeWindows, w, &w.CreatedAt, &w.UpdatedAt)
}

// ListStakeWindows returns the windows of session ordered by index.
func (tx *Tx) ListStakeWindows(session string) ([]*StakeWindow, error) {
	return getAll[StakeWindow](tx.q,
		`SELECT * FROM stake_windows WHERE session_address = ? ORDER BY window_index ASC`, session)
}

// SetWindowActive updates only the job-derived is_active flag of a window.
func (tx *Tx) SetWindowActive(session string, index uint64, active bool) error {
	_, err := tx.q.Exec(`
		UPDATE stake_windows SET is_active = ?, updated_at = ?
		WHERE session_address = ? AND window_index = ?`,
		active, tx.Now(), session, index)
	if err != nil {
		return fmt.Errorf("failed to set window active flag: %w", err)
	}

	return nil
}

func (tx *Tx) GetUserDeposit(session, user string, agentIndex uint64) (*UserDeposit, error) {
	return getOne[UserDeposit](tx.q,
		`SELECT * FROM user_deposits WHERE session_address = ? AND user_address = ? AND agent_index = ?`,
		session, user, agentIndex)
}

func (tx *Tx) SaveUserDeposit(d *UserDeposit) error {
	return tx.save(TableUserDeposits, d, &d.CreatedAt, &d.UpdatedAt)
}

// ListUserDeposits returns every deposit of user in session.
func (tx *Tx) ListUserDeposits(session, user string) ([]*UserDeposit, error) {
	return getAll[UserDeposit](tx.q,
		`SELECT * FROM user_deposits WHERE session_address = ? AND user_address = ? ORDER BY agent_index ASC`,
		session, user)
}

func (tx *Tx) InsertGameEvent(e *GameEvent) error {
	return tx.insert(TableGameEvents, e)
}

func (tx *Tx) ListGameEvents(session string) ([]*GameEvent, error) {
	return getAll[GameEvent](tx.q, `SELECT * FROM game_events WHERE session_address = ? ORDER BY id ASC`, session)
}

func (tx *Tx) GetAgentScore(agent, session string) (*AgentScore, error) {
	return getOne[AgentScore](tx.q,
		`SELECT * FROM agent_scores WHERE agent_address = ? AND session_address = ?`, agent, session)
}

// ListAgentScores returns the scores of session, best first.
func (tx *Tx) ListAgentScores(session string) ([]*AgentScore, error) {
	return getAll[AgentScore](tx.q,
		`SELECT * FROM agent_scores WHERE session_address = ? ORDER BY total_score DESC, agent_index ASC`, session)
}

// UpsertAgentScore overwrites the score of one agent in a single statement.
func (tx *Tx) UpsertAgentScore(s *AgentScore) error {
	breakdown, err := json.Marshal(s.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("failed to encode score breakdown: %w", err)
	}

	_, err = tx.q.Exec(`
		INSERT INTO agent_scores (
			agent_address, session_address, agent_index, resource_balance_score,
			lp_position_score, farming_score, total_score, score_breakdown, last_calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_address, session_address) DO UPDATE SET
			agent_index = excluded.agent_index,
			resource_balance_score = excluded.resource_balance_score,
			lp_position_score = excluded.lp_position_score,
			farming_score = excluded.farming_score,
			total_score = excluded.total_score,
			score_breakdown = excluded.score_breakdown,
			last_calculated_at = excluded.last_calculated_at`,
		s.AgentAddress, s.SessionAddress, s.AgentIndex, s.ResourceBalanceScore,
		s.LPPositionScore, s.FarmingScore, s.TotalScore, string(breakdown), s.LastCalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert agent score: %w", err)
	}

	return nil
}
