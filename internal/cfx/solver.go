package cfx

import (
	"path/filepath"
	"strconv"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
)

// Distributed parallel start method used for multi-node solver runs.
const startMethodDistributed = "Platform MPI Distributed Parallel"

// Local parallel start method used for single-node runs.
const startMethodLocal = "Platform MPI Local Parallel"

// SolveCommand describes one cfx5solve invocation for a case.
type SolveCommand struct {
	Binary string
	Args   []string
	Dir    string // working directory (the case directory)
}

// SolverOptions control how the solver invocation is assembled.
type SolverOptions struct {
	Partitions int    // total partition count (cores across nodes)
	NodesSpec  string // scheduler nodes spec, e.g. "n44:ppn=28+n45:ppn=16"
	InitialRes string // initial values file; empty disables -ini-file
}

// BuildSolveCommand assembles the cfx5solve invocation for one def file.
// With a nodes spec the run is distributed across the listed hosts; otherwise
// it is a local parallel run over Partitions cores.
func BuildSolveCommand(inst *Installation, defFile string, opts SolverOptions) SolveCommand {
	args := []string{
		"-batch",
		"-def", filepath.Base(defFile),
	}

	if opts.InitialRes != "" {
		args = append(args, "-ini-file", opts.InitialRes)
	}

	if opts.NodesSpec != "" {
		args = append(args,
			"-par-dist", opts.NodesSpec,
			"-start-method", startMethodDistributed,
		)
	} else if opts.Partitions > 1 {
		args = append(args,
			"-part", strconv.Itoa(opts.Partitions),
			"-start-method", startMethodLocal,
		)
	}

	return SolveCommand{
		Binary: inst.SolverBin,
		Args:   args,
		Dir:    filepath.Dir(defFile),
	}
}

// SolveCommands builds a solver invocation per case, resolving the initial
// values file relative to each case directory.
func SolveCommands(inst *Installation, cfg *config.Settings, workDir string, opts SolverOptions) []SolveCommand {
	cases := CasesFor(cfg, workDir)
	cmds := make([]SolveCommand, 0, len(cases))
	for _, c := range cases {
		caseOpts := opts
		if caseOpts.InitialRes == "" && cfg.InitialFile != "" {
			caseOpts.InitialRes = cfg.InitialFile
		}
		cmds = append(cmds, BuildSolveCommand(inst, c.DefFile, caseOpts))
	}
	return cmds
}
