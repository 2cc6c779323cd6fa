package store

import (
	"fmt"
)

// LastProcessedBlock returns the indexing cursor.
func (tx *Tx) LastProcessedBlock() (uint64, error) {
	state, err := getOne[SyncState](tx.q, `SELECT * FROM sync_state WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to get sync state: %w", err)
	}

	return state.LastProcessedBlock, nil
}

// SaveSyncState moves the indexing cursor to block.
func (tx *Tx) SaveSyncState(block uint64) error {
	_, err := tx.q.Exec(`
		INSERT INTO sync_state (id, last_processed_block, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_processed_block = excluded.last_processed_block,
			updated_at = excluded.updated_at`,
		block, tx.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}

	return nil
}

// GetRegisteredContract looks a contract up by address.
func (tx *Tx) GetRegisteredContract(address string) (*RegisteredContract, error) {
	return getOne[RegisteredContract](tx.q, `SELECT * FROM registered_contracts WHERE address = ?`, address)
}

// GetRegisteredContractByName looks a contract up by its registered name.
func (tx *Tx) GetRegisteredContractByName(name string) (*RegisteredContract, error) {
	return getOne[RegisteredContract](tx.q, `SELECT * FROM registered_contracts WHERE name = ?`, name)
}

// ListRegisteredContracts returns every registered contract in registration order.
func (tx *Tx) ListRegisteredContracts() ([]*RegisteredContract, error) {
	return getAll[RegisteredContract](tx.q, `SELECT * FROM registered_contracts ORDER BY id ASC`)
}

// InsertRegisteredContract stores c unless its address is already known.
// It reports whether a row was created.
func (tx *Tx) InsertRegisteredContract(c *RegisteredContract) (bool, error) {
	known, err := tx.exists(`SELECT 1 FROM registered_contracts WHERE address = ?`, c.Address)
	if err != nil {
		return false, fmt.Errorf("failed to check registered contract: %w", err)
	}
	if known {
		return false, nil
	}

	if c.CreatedAt == 0 {
		c.CreatedAt = tx.Now()
	}
	if err := tx.insert(TableRegisteredContracts, c); err != nil {
		return false, err
	}

	return true, nil
}

// SetContractIndex records the index name and template of a registered contract.
func (tx *Tx) SetContractIndex(address, indexName, template string) error {
	res, err := tx.q.Exec(
		`UPDATE registered_contracts SET index_name = ?, template = ? WHERE address = ?`,
		indexName, template, address,
	)
	if err != nil {
		return fmt.Errorf("failed to set contract index: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
