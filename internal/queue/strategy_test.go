package queue

import "testing"

func TestSelectStrategyDecisionTable(t *testing.T) {
	tests := []struct {
		name  string
		jobs  int
		nodes int
		want  Strategy
	}{
		{"enough nodes for all", 4, 6, StrategyParallel},
		{"exact fit", 4, 4, StrategyParallel},
		{"over threshold", 10, 4, StrategyBatch},
		{"under threshold, short on nodes", 6, 4, StrategySequential},
		{"one node only", 3, 1, StrategySequential},
		{"zero jobs", 0, 0, StrategyParallel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectStrategy(tt.jobs, tt.nodes, DefaultStrategyConfig())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("select(%d jobs, %d nodes) = %s, want %s", tt.jobs, tt.nodes, got, tt.want)
			}
		})
	}
}

func TestSelectStrategyForced(t *testing.T) {
	cfg := StrategyConfig{Forced: "batch", JobCountThreshold: 8}
	// Forced strategy bypasses the table even when parallel would win.
	got, err := SelectStrategy(2, 10, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != StrategyBatch {
		t.Errorf("forced batch ignored, got %s", got)
	}
}

func TestSelectStrategyConfigErrors(t *testing.T) {
	// Invalid forced strategy and non-positive threshold are hard errors,
	// raised before any allocation work.
	if _, err := SelectStrategy(4, 4, StrategyConfig{Forced: "turbo", JobCountThreshold: 8}); !IsConfigError(err) {
		t.Errorf("expected ConfigError for bad forced strategy, got %v", err)
	}
	if _, err := SelectStrategy(4, 4, StrategyConfig{JobCountThreshold: 0}); !IsConfigError(err) {
		t.Errorf("expected ConfigError for zero threshold, got %v", err)
	}
	if _, err := SelectStrategy(4, 4, StrategyConfig{JobCountThreshold: -3}); !IsConfigError(err) {
		t.Errorf("expected ConfigError for negative threshold, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"parallel", "Sequential", " BATCH "} {
		if _, err := ParseStrategy(s); err != nil {
			t.Errorf("ParseStrategy(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseStrategy("roundrobin"); err == nil {
		t.Errorf("expected error for unknown strategy")
	}
}
