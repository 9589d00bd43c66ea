package monitoring

import (
	"sync/atomic"
	"time"
)

// Metrics collects the counters the validation core itself produces: block
// and transaction throughput, UTXO cache effectiveness, and chain
// reorganizations. There is no peer, network, or mempool surface in this
// repository, so no such counters exist here. All fields are atomics;
// averages are derived at read time rather than maintained under a lock.
type Metrics struct {
	blocksProcessed  atomic.Uint64
	blockTimeNanos   atomic.Int64
	txProcessed      atomic.Uint64
	txValidationNano atomic.Int64

	utxoCacheHits   atomic.Uint64
	utxoCacheMisses atomic.Uint64

	reorgCount     atomic.Uint64
	lastReorgDepth atomic.Uint64
}

// NewMetrics returns a zeroed collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordBlockProcessed counts one connected block and the wall time its
// connection took.
func (m *Metrics) RecordBlockProcessed(processingTime time.Duration) {
	m.blocksProcessed.Add(1)
	m.blockTimeNanos.Add(int64(processingTime))
}

// GetBlocksProcessed returns the total number of blocks connected.
func (m *Metrics) GetBlocksProcessed() uint64 {
	return m.blocksProcessed.Load()
}

// GetAvgBlockProcessingTime returns the mean per-block connection time.
func (m *Metrics) GetAvgBlockProcessingTime() time.Duration {
	n := m.blocksProcessed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.blockTimeNanos.Load() / int64(n))
}

// RecordTxProcessed counts one validated transaction.
func (m *Metrics) RecordTxProcessed(validationTime time.Duration) {
	m.txProcessed.Add(1)
	m.txValidationNano.Add(int64(validationTime))
}

// GetTxProcessed returns the total number of transactions validated.
func (m *Metrics) GetTxProcessed() uint64 {
	return m.txProcessed.Load()
}

// GetAvgTxValidationTime returns the mean per-transaction validation time.
func (m *Metrics) GetAvgTxValidationTime() time.Duration {
	n := m.txProcessed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.txValidationNano.Load() / int64(n))
}

// RecordUTXOCacheHit counts a coin lookup served from the in-memory view.
func (m *Metrics) RecordUTXOCacheHit() {
	m.utxoCacheHits.Add(1)
}

// RecordUTXOCacheMiss counts a coin lookup that fell through to disk.
func (m *Metrics) RecordUTXOCacheMiss() {
	m.utxoCacheMisses.Add(1)
}

// GetUTXOCacheHitRate returns the fraction of coin lookups the cache
// absorbed, or 0 before any lookup has happened.
func (m *Metrics) GetUTXOCacheHitRate() float64 {
	hits := m.utxoCacheHits.Load()
	total := hits + m.utxoCacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// RecordReorg counts one reorganization and how many blocks it disconnected.
func (m *Metrics) RecordReorg(depth uint64) {
	m.reorgCount.Add(1)
	m.lastReorgDepth.Store(depth)
}

// GetReorgCount returns how many reorganizations have happened.
func (m *Metrics) GetReorgCount() uint64 {
	return m.reorgCount.Load()
}

// GetLastReorgDepth returns the disconnect depth of the most recent reorg.
func (m *Metrics) GetLastReorgDepth() uint64 {
	return m.lastReorgDepth.Load()
}

// Summary snapshots every counter for logging or an operator endpoint.
func (m *Metrics) Summary() map[string]interface{} {
	return map[string]interface{}{
		"blocks_processed":    m.GetBlocksProcessed(),
		"avg_block_time_ms":   m.GetAvgBlockProcessingTime().Milliseconds(),
		"tx_processed":        m.GetTxProcessed(),
		"avg_tx_time_us":      m.GetAvgTxValidationTime().Microseconds(),
		"utxo_cache_hit_rate": m.GetUTXOCacheHitRate(),
		"reorg_count":         m.GetReorgCount(),
		"last_reorg_depth":    m.GetLastReorgDepth(),
	}
}

var globalMetrics = NewMetrics()

// GetGlobalMetrics returns the process-wide collector the activator and
// UTXO view record into.
func GetGlobalMetrics() *Metrics {
	return globalMetrics
}
