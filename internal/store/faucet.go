package store

func (tx *Tx) GetFaucetFactory(address string) (*FaucetFactory, error) {
	return getOne[FaucetFactory](tx.q, `SELECT * FROM faucet_factories WHERE address = ?`, address)
}

func (tx *Tx) SaveFaucetFactory(f *FaucetFactory) error {
	return tx.save(TableFaucetFactories, f, &f.CreatedAt, &f.UpdatedAt)
}

func (tx *Tx) GetFaucet(address string) (*Faucet, error) {
	return getOne[Faucet](tx.q, `SELECT * FROM faucets WHERE address = ?`, address)
}

func (tx *Tx) SaveFaucet(f *Faucet) error {
	return tx.save(TableFaucets, f, &f.CreatedAt, &f.UpdatedAt)
}

func (tx *Tx) GetFaucetToken(faucet, token string) (*FaucetToken, error) {
	return getOne[FaucetToken](tx.q,
		`SELECT * FROM faucet_tokens WHERE faucet_address = ? AND token_address = ?`, faucet, token)
}

func (tx *Tx) SaveFaucetToken(t *FaucetToken) error {
	return tx.save(TableFaucetTokens, t, &t.CreatedAt, &t.UpdatedAt)
}

func (tx *Tx) DeleteFaucetToken(faucet, token string) error {
	return tx.delete(TableFaucetTokens, "faucet_address = ? AND token_address = ?", faucet, token)
}

func (tx *Tx) ListFaucetTokens(faucet string) ([]*FaucetToken, error) {
	return getAll[FaucetToken](tx.q, `SELECT * FROM faucet_tokens WHERE faucet_address = ? ORDER BY id ASC`, faucet)
}

func (tx *Tx) GetWhitelistedUser(faucet, user string) (*WhitelistedUser, error) {
	return getOne[WhitelistedUser](tx.q,
		`SELECT * FROM whitelisted_users WHERE faucet_address = ? AND user_address = ?`, faucet, user)
}

func (tx *Tx) SaveWhitelistedUser(u *WhitelistedUser) error {
	return tx.save(TableWhitelistedUsers, u, &u.CreatedAt, &u.UpdatedAt)
}

// ListWhitelistedUsers returns the users of faucet that currently hold the whitelist flag.
func (tx *Tx) ListWhitelistedUsers(faucet string) ([]*WhitelistedUser, error) {
	return getAll[WhitelistedUser](tx.q,
		`SELECT * FROM whitelisted_users WHERE faucet_address = ? AND is_whitelisted = 1 ORDER BY id ASC`, faucet)
}

func (tx *Tx) InsertClaimEvent(e *ClaimEvent) error {
	return tx.insert(TableClaimEvents, e)
}

func (tx *Tx) ListClaimEvents(faucet string) ([]*ClaimEvent, error) {
	return getAll[ClaimEvent](tx.q, `SELECT * FROM claim_events WHERE faucet_address = ? ORDER BY id ASC`, faucet)
}
