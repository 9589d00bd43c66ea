// Command fullnode runs the block/chain validation core as a standalone
// process: it opens (or creates) the on-disk chain state, bootstraps
// genesis if the data directory is empty, and reports tip status until
// asked to shut down. It has no peer, RPC, or mining layer of its own;
// those are expected to sit in front of pkg/chainstate's Accept* calls.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/pouria-shahmiri/chaincore/pkg/chainstate"
	"github.com/pouria-shahmiri/chaincore/pkg/config"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/crypto"
	"github.com/pouria-shahmiri/chaincore/pkg/events"
	"github.com/pouria-shahmiri/chaincore/pkg/monitoring"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// Node wires a ChainState to a status reporter and a graceful shutdown path.
type Node struct {
	cfg    *config.NodeConfig
	state  *chainstate.ChainState
	bus    *events.Bus
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "parse flags: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	monitoring.SetGlobalLevel(monitoring.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		if err := monitoring.InitLogRotator(cfg.LogFile, 10*1024, 10); err != nil {
			fmt.Fprintf(os.Stderr, "init log rotator: %v\n", err)
			os.Exit(1)
		}
		defer monitoring.CloseLogRotator()
	}

	monitoring.Info("=== validation core starting ===")
	monitoring.Info(cfg.String())

	node, err := NewNode(cfg)
	if err != nil {
		monitoring.Fatalf("create node: %v", err)
	}
	if err := node.Start(); err != nil {
		monitoring.Fatalf("start node: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	monitoring.Info("shutdown signal received, stopping node...")
	node.Stop()
	monitoring.Info("node stopped")
}

// NewNode opens the chain state and, if the data directory is empty,
// bootstraps it with a freshly-mined genesis block for the configured
// network. There is no pinned historical genesis for mainnet/testnet here
// (see DESIGN.md); every network bootstraps the same synthetic way a test
// harness would, which only matters in practice for regtest today.
func NewNode(cfg *config.NodeConfig) (*Node, error) {
	ctx, cancel := context.WithCancel(context.Background())

	params := networkParams(cfg.Network)
	bus := events.NewBus()
	bus.Register(&logObserver{})

	state, err := chainstate.Open(cfg.DataDir, params, cfg.ScriptCheckThreads, bus)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open chain state: %w", err)
	}
	state.SetPruning(cfg.Prune)

	if state.Tip() == nil {
		genesis := mineGenesis(params)
		if _, err := state.AcceptBlock(genesis); err != nil {
			state.Close()
			cancel()
			return nil, fmt.Errorf("accept genesis block: %w", err)
		}
		hash, _ := serialization.HashBlockHeader(&genesis.Header)
		monitoring.Infof("bootstrapped genesis block %x", hash[:8])
	}

	return &Node{cfg: cfg, state: state, bus: bus, ctx: ctx, cancel: cancel}, nil
}

func networkParams(network string) *consensus.Params {
	switch network {
	case "mainnet":
		return consensus.MainnetParams()
	case "testnet":
		return consensus.TestnetParams()
	default:
		return consensus.RegtestParams()
	}
}

// mineGenesis builds the one-coinbase genesis block for params, brute-
// forcing a nonce that satisfies its proof-of-work target. Only tractable
// at interactive speed for regtest/testnet-class targets.
func mineGenesis(params *consensus.Params) *types.Block {
	coinbase := types.Transaction{
		Version: 1,
		Inputs: []types.TxInput{
			{PrevTxHash: types.Hash{}, OutputIndex: 0xffffffff, SignatureScript: []byte("fullnode genesis"), Sequence: types.SequenceFinal},
		},
		Outputs: []types.TxOutput{
			{Value: consensus.BlockSubsidy(0), PubKeyScript: []byte{0x51}},
		},
	}
	txHash, err := serialization.HashTransaction(&coinbase)
	if err != nil {
		panic(err)
	}
	root, _ := crypto.ComputeMerkleRootMutated([]types.Hash{txHash})

	header := types.BlockHeader{
		Version:    1,
		MerkleRoot: root,
		Timestamp:  uint32(1231006505),
		Bits:       params.PowLimitBits,
	}
	for nonce := uint32(0); ; nonce++ {
		header.Nonce = nonce
		hash, err := serialization.HashBlockHeader(&header)
		if err != nil {
			panic(err)
		}
		if consensus.CheckProofOfWork(hash, header.Bits) {
			break
		}
	}
	return &types.Block{Header: header, Transactions: []types.Transaction{coinbase}}
}

// Start launches the background status reporter. Block ingestion itself
// happens through external calls into Node.state (AcceptHeader/AcceptBlock),
// driven by whatever peer or reindex layer sits in front of this process.
func (n *Node) Start() error {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.statusReporter()
	}()
	monitoring.Info("node started")
	return nil
}

// Stop cancels the status reporter and closes the chain state.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()
	if err := n.state.Close(); err != nil {
		monitoring.Errorf("close chain state: %v", err)
	}
}

func (n *Node) statusReporter() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			tip := n.state.Tip()
			if tip == nil {
				monitoring.Info("status: no tip yet")
				continue
			}
			monitoring.Infof("status: height=%d hash=%x", tip.Height, tip.Hash[:8])
			if n.cfg.EnableMonitoring {
				logger := monitoring.WithFields(monitoring.GetGlobalMetrics().Summary())
				logger.Info().Msg("metrics")
			}
		}
	}
}

// logObserver logs every chain-state event at debug level; a real deployment
// would register mempool/wallet/metrics observers instead or in addition.
type logObserver struct {
	events.NoopObserver
}

func (logObserver) OnBlockConnected(e events.BlockConnectedEvent) {
	logger := monitoring.WithField("height", e.Entry.Height)
	logger.Debug().Msg("block connected")
}

func (logObserver) OnBlockDisconnected(e events.BlockDisconnectedEvent) {
	logger := monitoring.WithField("height", e.Entry.Height)
	logger.Debug().Msg("block disconnected")
}

func (logObserver) OnUpdatedTip(e events.UpdatedTipEvent) {
	logger := monitoring.WithField("height", e.Tip.Height)
	logger.Debug().Msg("tip updated")
}
