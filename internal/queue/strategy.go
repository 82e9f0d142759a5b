// Package queue selects submission strategies and builds ordered batch plans.
package queue

import (
	"fmt"
	"strings"
)

// Strategy is the submission queueing policy.
type Strategy string

const (
	// StrategyParallel submits every job in one wave, each on its own node.
	StrategyParallel Strategy = "parallel"
	// StrategySequential submits node-count-sized waves, each gated on the
	// previous wave's completion.
	StrategySequential Strategy = "sequential"
	// StrategyBatch partitions jobs into fixed node-sized groups up front.
	StrategyBatch Strategy = "batch"
)

// ParseStrategy normalizes a strategy name from config or flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyParallel:
		return StrategyParallel, nil
	case StrategySequential:
		return StrategySequential, nil
	case StrategyBatch:
		return StrategyBatch, nil
	default:
		return "", NewConfigError("strategy", s, "must be parallel, sequential or batch")
	}
}

// DefaultJobCountThreshold is the job count above which batch mode kicks in.
const DefaultJobCountThreshold = 8

// StrategyConfig carries the configurable inputs of strategy selection.
type StrategyConfig struct {
	// Forced bypasses the decision table entirely when non-empty.
	Forced string
	// JobCountThreshold is the job count above which Batch wins over
	// Sequential. Must be positive.
	JobCountThreshold int
}

// DefaultStrategyConfig returns the standard selection config.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{JobCountThreshold: DefaultJobCountThreshold}
}

// SelectStrategy picks the queueing policy from node supply vs job demand.
// Decision table, evaluated in order:
//
//  1. enough free nodes for every job  -> parallel
//  2. more jobs than the threshold     -> batch
//  3. otherwise                        -> sequential
//
// A forced strategy in cfg bypasses the table. Invalid configuration is the
// one hard error of the planning pipeline and is rejected before any
// allocation work.
func SelectStrategy(jobCount, availableNodeCount int, cfg StrategyConfig) (Strategy, error) {
	if cfg.JobCountThreshold <= 0 {
		return "", NewConfigError("job_count_threshold",
			fmt.Sprintf("%d", cfg.JobCountThreshold), "must be positive")
	}
	if cfg.Forced != "" {
		return ParseStrategy(cfg.Forced)
	}

	switch {
	case availableNodeCount >= jobCount:
		return StrategyParallel, nil
	case jobCount > cfg.JobCountThreshold:
		return StrategyBatch, nil
	default:
		return StrategySequential, nil
	}
}
