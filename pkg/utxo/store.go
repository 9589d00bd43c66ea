package utxo

import (
	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// Store is the persistent backing store behind the View cache: a
// tx_hash-keyed Coins table plus the best_block marker.
type Store struct {
	db *storage.Database
}

// NewStore wraps db for Coins storage.
func NewStore(db *storage.Database) *Store {
	return &Store{db: db}
}

// GetCoins loads one record, returning (nil, nil) on a clean miss.
func (s *Store) GetCoins(txHash types.Hash) (*types.Coins, error) {
	raw, err := s.db.Get(storage.CoinsKey(txHash))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return DeserializeCoins(raw)
}

// BatchPutCoins stages a Coins write into batch.
func (s *Store) BatchPutCoins(batch *storage.Batch, txHash types.Hash, c *types.Coins) error {
	raw, err := SerializeCoins(c)
	if err != nil {
		return err
	}
	batch.Put(storage.CoinsKey(txHash), raw)
	return nil
}

// BatchDeleteCoins stages a Coins deletion into batch.
func (s *Store) BatchDeleteCoins(batch *storage.Batch, txHash types.Hash) {
	batch.Delete(storage.CoinsKey(txHash))
}

// NewBatch starts an atomic batch shared by the caller's other writes
// (e.g. the block index flush accompanying this UTXO flush).
func (s *Store) NewBatch() *storage.Batch {
	return s.db.NewBatch()
}
