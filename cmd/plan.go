package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/allocate"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var (
	planStrategy  string
	planCores     int
	planJobCount  int
	planPressures []string
	planThreshold int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build and show the submission plan against live cluster state",
	Long: `Plan queries the cluster, picks a queue strategy for the configured
pressure cases (or uses a forced one), allocates nodes and prints the
resulting submission batches. Nothing is generated or submitted.`,
	Example: `  autoexsim plan                      # Auto-select the strategy
  autoexsim plan --strategy batch     # Force batch mode
  autoexsim plan --jobs 12 --cores 28 # Hypothetical job set
  autoexsim plan --pressures 2187,2189,2191`,
	SilenceUsage: true,
	RunE:         runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planStrategy, "strategy", "", "Force a queue strategy: parallel, sequential or batch")
	planCmd.Flags().IntVar(&planCores, "cores", 0, "Cores per job (default: nodes x tasks_per_node)")
	planCmd.Flags().IntVar(&planJobCount, "jobs", 0, "Plan for N synthetic jobs instead of the pressure list")
	planCmd.Flags().StringSliceVar(&planPressures, "pressures", nil, "Override the back pressure list (Pa)")
	planCmd.Flags().IntVar(&planThreshold, "threshold", 0, "Override the batch-mode job count threshold")
}

func runPlan(cmd *cobra.Command, args []string) error {
	client, closer, err := clusterClient(cmd.Context(), false)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	nodes, err := client.QueryNodes(cmd.Context())
	if err != nil {
		return err
	}

	jobs, err := planJobs()
	if err != nil {
		return err
	}

	forced := planStrategy
	if forced == "" {
		forced = config.Global.QueueStrategy
	}
	threshold := config.Global.JobThreshold
	if planThreshold > 0 {
		threshold = planThreshold
	}
	free := len(cluster.FilterAvailable(nodes, 0, 0, ""))
	strategy, err := queue.SelectStrategy(len(jobs), free, queue.StrategyConfig{
		Forced:            forced,
		JobCountThreshold: threshold,
	})
	if err != nil {
		return err
	}

	opts := queue.DefaultPlanOptions()
	opts.Allocate.ReuseResidual = config.Global.ReuseResidual
	plan, err := queue.BuildPlan(jobs, nodes, strategy, opts)
	if err != nil {
		return err
	}

	utils.PrintMessage("Strategy: %s (%d job(s), %d free node(s), threshold %d)",
		utils.StyleHighlight(string(strategy)), len(jobs), free, threshold)

	for _, batch := range plan.Batches {
		utils.PrintMessage("Batch %d: %d job(s)", batch.Index+1, len(batch.Jobs))
		for _, pj := range batch.Jobs {
			var parts []string
			for _, n := range pj.Allocation.Nodes {
				parts = append(parts, utils.StyleName(n.Name))
			}
			utils.PrintMessage("  %s: %d core(s) on %s",
				pj.Job.ID, pj.Allocation.TotalCores(), strings.Join(parts, ", "))
		}
	}

	for _, uj := range plan.Unallocated {
		utils.PrintWarning("Job %s cannot be placed: %s", uj.Job.ID, uj.Reason)
	}
	if len(plan.Unallocated) == 0 {
		utils.PrintSuccess("All %d job(s) placed across %d batch(es)",
			plan.JobCount(), len(plan.Batches))
	}
	return nil
}

// planJobs builds the job set to plan for: synthetic jobs with --jobs, an
// overridden pressure list with --pressures, or the configured pressures.
func planJobs() ([]allocate.JobRequirement, error) {
	cores := planCores
	if cores <= 0 {
		cores = config.Global.Nodes * config.Global.TasksPerNode
	}

	if planJobCount > 0 {
		jobs := make([]allocate.JobRequirement, 0, planJobCount)
		for i := 0; i < planJobCount; i++ {
			jobs = append(jobs, allocate.JobRequirement{
				ID:       fmt.Sprintf("job%d", i+1),
				Cores:    cores,
				MemoryMB: config.Global.MemPerNodeMB,
				Nodes:    config.Global.Nodes,
			})
		}
		return jobs, nil
	}

	pressures := config.Global.Pressures
	if len(planPressures) > 0 {
		pressures = make([]float64, 0, len(planPressures))
		for _, s := range planPressures {
			p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, err
			}
			pressures = append(pressures, p)
		}
	}

	jobs := make([]allocate.JobRequirement, 0, len(pressures))
	for _, p := range pressures {
		jobs = append(jobs, allocate.JobRequirement{
			ID:       utils.FormatPressure(p),
			Cores:    cores,
			MemoryMB: config.Global.MemPerNodeMB,
			Nodes:    config.Global.Nodes,
		})
	}
	return jobs, nil
}
