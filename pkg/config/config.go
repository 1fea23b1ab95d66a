// Package config loads the executor's tunables: the execution budget cap,
// channel/backlog sizing, and passthrough chain parameters the core never
// interprets.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/flowmatic/tlb/pkg/types"
)

// ChainParams carries values the core is handed but never reads itself -
// things like cardano_finalization_delay, starting_point and
// disable_rollbacks_until that a chain-specific Upstream/Ctx implementation
// may need, without the core imposing any structure on them.
type ChainParams map[string]string

func (p ChainParams) String(key, defaultValue string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return defaultValue
}

func (p ChainParams) Int64(key string, defaultValue int64) int64 {
	if v, ok := p[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

// Config is the executor's own tunables, separate from anything a
// collaborator's Upstream/Interpreter/Prover/Network implementation needs.
type Config struct {
	ExecutionCap    types.ExecutionCap
	FeedbackCapacity int
	BacklogCapacity  int
	Chain            ChainParams
}

func Default() Config {
	return Config{
		ExecutionCap:     types.ExecutionCap{Soft: 700_000, Hard: 1_000_000},
		FeedbackCapacity: 100,
		BacklogCapacity:  64,
		Chain: ChainParams{
			"cardano_finalization_delay": "10",
			"starting_point":             "0",
			"disable_rollbacks_until":    "0",
		},
	}
}

// LoadFromEnv loads Config from a .env file (if present) and environment
// variables, in that priority order over the defaults.
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("TLB_EXECUTION_SOFT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ExecutionCap.Soft = types.ExecutionCost(n)
		}
	}
	if v := os.Getenv("TLB_EXECUTION_HARD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ExecutionCap.Hard = types.ExecutionCost(n)
		}
	}
	if v := os.Getenv("TLB_FEEDBACK_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FeedbackCapacity = n
		}
	}
	if v := os.Getenv("TLB_BACKLOG_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BacklogCapacity = n
		}
	}
	for _, key := range []string{"cardano_finalization_delay", "starting_point", "disable_rollbacks_until"} {
		envKey := "TLB_CHAIN_" + key
		if v := os.Getenv(envKey); v != "" {
			cfg.Chain[key] = v
		}
	}

	if err := cfg.ExecutionCap.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
