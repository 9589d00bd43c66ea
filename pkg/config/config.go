package config

import (
	"fmt"

	flags "github.com/jessevdk/go-flags"
)

// NodeConfig holds the configuration a validation-core process needs:
// which network's consensus parameters to run, where to keep chain state on
// disk, and how to size the logger and script-check worker pool. Every
// field doubles as a CLI flag (via the `long` tag) and an environment
// variable (via the `env` tag), with `default` supplying the fallback when
// neither is set.
type NodeConfig struct {
	Network string `long:"network" env:"NETWORK" default:"regtest" description:"mainnet, testnet, or regtest"`
	DataDir string `long:"datadir" env:"DATA_DIR" default:"./data/node" description:"directory for the block index, block files, and UTXO database"`

	LogLevel string `long:"loglevel" env:"LOG_LEVEL" default:"info" description:"debug, info, warn, or error"`
	LogFile  string `long:"logfile" env:"LOG_FILE" description:"rotating log file path; empty disables file logging"`

	ScriptCheckThreads int  `long:"scriptcheckthreads" env:"SCRIPT_CHECK_THREADS" default:"4" description:"parallel script verification workers"`
	EnableMonitoring   bool `long:"enablemonitoring" env:"ENABLE_MONITORING" description:"enable metrics collection"`
	Prune              bool `long:"prune" env:"PRUNE" description:"unlink block files once fully buried past the retention window"`
}

// DefaultConfig returns a NodeConfig populated from environment variables
// where set and from the declared defaults otherwise, ignoring the command
// line.
func DefaultConfig() *NodeConfig {
	cfg := &NodeConfig{}
	parser := flags.NewParser(cfg, flags.IgnoreUnknown|flags.PassDoubleDash)
	// ParseArgs with no arguments still applies struct-tag defaults.
	_, _ = parser.ParseArgs(nil)
	return cfg
}

// LoadFromEnv returns a NodeConfig populated from environment variables,
// falling back to the declared defaults for anything unset.
func LoadFromEnv() *NodeConfig {
	return DefaultConfig()
}

// Parse parses command line arguments into a NodeConfig, falling back to
// the environment and then the declared defaults for any flag not given on
// the command line. args is typically os.Args[1:].
func Parse(args []string) (*NodeConfig, error) {
	cfg := &NodeConfig{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration describes a startable node.
func (c *NodeConfig) Validate() error {
	validNetworks := map[string]bool{"mainnet": true, "testnet": true, "regtest": true}
	if !validNetworks[c.Network] {
		return fmt.Errorf("invalid network: %s (must be mainnet, testnet, or regtest)", c.Network)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.ScriptCheckThreads < 1 {
		return fmt.Errorf("scriptcheckthreads must be at least 1, got %d", c.ScriptCheckThreads)
	}

	return nil
}

// String returns a human-readable summary of the configuration.
func (c *NodeConfig) String() string {
	return fmt.Sprintf(`Node configuration:
  Network:             %s
  Data directory:      %s
  Log level:           %s
  Log file:            %s
  Script check threads: %d
  Monitoring enabled:  %v
  Pruning enabled:     %v`,
		c.Network,
		c.DataDir,
		c.LogLevel,
		c.LogFile,
		c.ScriptCheckThreads,
		c.EnableMonitoring,
		c.Prune,
	)
}
