// Package events is the typed observer bus chain-state notifications go
// through: mempool, wallet, and UI-style consumers each implement Observer
// and register with a Bus. Dispatch is deliberately synchronous rather
// than channel-fanned: ordering across multiple concurrent readers can't
// be guaranteed that way. Serializing through one mutex means
// the ordering guarantee chain-state mutation needs (connects delivered
// in connection order, a reorg's disconnects in reverse-height order
// followed by its connects in forward-height order) falls out of the
// caller simply publishing events in that order.
package events

import (
	"github.com/pouria-shahmiri/chaincore/pkg/blockindex"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// BlockConnectedEvent fires once per block newly connected to the active
// chain.
type BlockConnectedEvent struct {
	Entry *blockindex.Entry
	Block *types.Block
}

// BlockDisconnectedEvent fires once per block removed from the active
// chain (the tip end of a reorg, or an explicit invalidate).
type BlockDisconnectedEvent struct {
	Entry *blockindex.Entry
	Block *types.Block
}

// UpdatedTipEvent fires after a batch of connects/disconnects settles on a
// new best tip, once per activate_best_chain call rather than once per
// block.
type UpdatedTipEvent struct {
	Tip *blockindex.Entry
}

// TxEnteredMempoolEvent fires when a transaction is accepted into the
// mempool. Nothing in this repository publishes or consumes it, since
// mempool policy lives outside the core.
type TxEnteredMempoolEvent struct {
	Tx *types.Transaction
}

// AlertEvent carries an operator-facing advisory (e.g. an approaching
// consensus deadline, or a detected invalid-chain fork with more work
// than the active one).
type AlertEvent struct {
	Message string
}

// Observer is implemented by anything that wants to react to chain-state
// changes. Embed NoopObserver to pick up default no-op implementations
// for the callbacks a particular observer doesn't care about.
type Observer interface {
	OnBlockConnected(BlockConnectedEvent)
	OnBlockDisconnected(BlockDisconnectedEvent)
	OnUpdatedTip(UpdatedTipEvent)
	OnTxEnteredMempool(TxEnteredMempoolEvent)
	OnAlert(AlertEvent)
}

// NoopObserver implements Observer with no-op methods; embed it to
// override only the callbacks an observer actually needs.
type NoopObserver struct{}

func (NoopObserver) OnBlockConnected(BlockConnectedEvent)       {}
func (NoopObserver) OnBlockDisconnected(BlockDisconnectedEvent) {}
func (NoopObserver) OnUpdatedTip(UpdatedTipEvent)               {}
func (NoopObserver) OnTxEnteredMempool(TxEnteredMempoolEvent)   {}
func (NoopObserver) OnAlert(AlertEvent)                         {}

// Bus fans a single stream of chain-state events out to every registered
// Observer, in registration order, synchronously on the publishing
// goroutine.
type Bus struct {
	observers []Observer
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Register adds o to the dispatch list. Not safe to call concurrently
// with a Publish* call; callers register observers during startup, before
// the chain state begins processing blocks.
func (b *Bus) Register(o Observer) {
	b.observers = append(b.observers, o)
}

// PublishBlockConnected notifies every observer, in registration order.
func (b *Bus) PublishBlockConnected(e BlockConnectedEvent) {
	for _, o := range b.observers {
		o.OnBlockConnected(e)
	}
}

// PublishBlockDisconnected notifies every observer, in registration order.
func (b *Bus) PublishBlockDisconnected(e BlockDisconnectedEvent) {
	for _, o := range b.observers {
		o.OnBlockDisconnected(e)
	}
}

// PublishUpdatedTip notifies every observer, in registration order.
func (b *Bus) PublishUpdatedTip(e UpdatedTipEvent) {
	for _, o := range b.observers {
		o.OnUpdatedTip(e)
	}
}

// PublishTxEnteredMempool notifies every observer, in registration order.
func (b *Bus) PublishTxEnteredMempool(e TxEnteredMempoolEvent) {
	for _, o := range b.observers {
		o.OnTxEnteredMempool(e)
	}
}

// PublishAlert notifies every observer, in registration order.
func (b *Bus) PublishAlert(e AlertEvent) {
	for _, o := range b.observers {
		o.OnAlert(e)
	}
}
