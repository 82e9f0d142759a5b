package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/cluster"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var (
	queryShowQueue bool
	queryDetect    bool
	queryFree      bool
	queryPartition string
	queryMinCores  int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query cluster node resources",
	Long: `Query fetches node status from the cluster scheduler (sinfo for SLURM,
pbsnodes for PBS) and prints per-node core and memory availability.`,
	Example: `  autoexsim query                    # Show node resources
  autoexsim query --free             # Only schedulable nodes
  autoexsim query --min-cores 28     # Nodes with at least 28 free cores
  autoexsim query --partition cpu-low
  autoexsim query --queue            # Also show the job queue
  autoexsim query --detect           # Probe the scheduler type instead of trusting config`,
	SilenceUsage: true,
	RunE:         runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryShowQueue, "queue", false, "Also show the scheduler job queue")
	queryCmd.Flags().BoolVar(&queryDetect, "detect", false, "Detect the scheduler type on the cluster")
	queryCmd.Flags().BoolVar(&queryFree, "free", false, "Only show schedulable nodes")
	queryCmd.Flags().StringVar(&queryPartition, "partition", "", "Only show nodes of this partition")
	queryCmd.Flags().IntVar(&queryMinCores, "min-cores", 0, "Only show nodes with at least this many free cores")
}

func runQuery(cmd *cobra.Command, args []string) error {
	client, closer, err := clusterClient(cmd.Context(), queryDetect)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	all, err := client.QueryNodes(cmd.Context())
	if err != nil {
		return err
	}

	nodes := all
	if queryFree || queryMinCores > 0 || queryPartition != "" {
		nodes = cluster.FilterAvailable(all, queryMinCores, 0, queryPartition)
	}

	for _, n := range nodes {
		state := n.State.String()
		switch n.State {
		case cluster.StateFree:
			state = utils.StyleSuccess(state)
		case cluster.StateDown:
			state = utils.StyleError(state)
		default:
			state = utils.StyleWarning(state)
		}
		utils.PrintMessage("%-12s %s  %2d/%2d cores  %s",
			utils.StyleName(n.Name), state,
			n.AvailableCores, n.TotalCores,
			utils.FormatBytes(n.MemoryMB*1024*1024))
	}

	s := cluster.Summarize(nodes)
	utils.PrintMessage("Total: %d node(s), %d free, %d busy, %d down; %d core(s) available",
		s.TotalNodes, s.FreeNodes, s.BusyNodes, s.DownNodes, s.AvailableCores)

	if queryShowQueue {
		jobs, err := client.QueryQueue(cmd.Context())
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			utils.PrintMessage("Queue is empty")
			return nil
		}
		for _, j := range jobs {
			utils.PrintMessage("%-10s %-24s %-10s %s", j.ID, j.Name, j.User, j.State)
		}
	}
	return nil
}
