package cmd

import (
	"context"
	"fmt"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/remote"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// connectRunner returns a command runner for the configured cluster: the SSH
// client when a host is set, the local shell otherwise (the tool may already
// be running on a login node). The returned closer is nil for local runs.
func connectRunner(ctx context.Context) (remote.Runner, func() error, error) {
	if config.Global.SSHHost == "" {
		utils.PrintDebug("No SSH host configured; running commands locally")
		return remote.NewLocalRunner(), nil, nil
	}

	client := remote.NewSSHClient(&config.Global)
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// clusterClient wraps connectRunner with scheduler kind resolution: the
// configured kind is used unless detection is requested.
func clusterClient(ctx context.Context, detect bool) (*cluster.Client, func() error, error) {
	runner, closer, err := connectRunner(ctx)
	if err != nil {
		return nil, nil, err
	}

	kind := cluster.SchedulerKind(config.Global.Scheduler)
	if detect {
		detected, err := cluster.DetectKind(ctx, runner)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, nil, err
		}
		kind = detected
	}

	return cluster.NewClient(runner, kind), closer, nil
}

// requireValidConfig aborts with a readable error when settings are unusable.
func requireValidConfig() error {
	if errs := config.Global.Validate(); len(errs) != 0 {
		for _, err := range errs {
			utils.PrintError("%v", err)
		}
		return fmt.Errorf("configuration is invalid (%d problem(s))", len(errs))
	}
	return nil
}
