package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/monitor"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/queue"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/scripts"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

var monitorJobIDs []string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor previously submitted jobs",
	Long: `Monitor polls the scheduler for jobs submitted earlier. Without --job,
the IDs recorded in the working directory's ` + scripts.JobIDsFilename + ` are used (the
Submit_All.sh helper and the submit command both write it). The final
monitoring report is saved as JSON in the working directory.`,
	Example: `  autoexsim monitor                 # Jobs from job_ids.txt
  autoexsim monitor --job 123456    # Specific job IDs`,
	SilenceUsage: true,
	RunE:         runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringSliceVar(&monitorJobIDs, "job", nil, "Job ID(s) to monitor instead of job_ids.txt")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	runner, closer, err := connectRunner(cmd.Context())
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	m := monitor.New(runner, config.Global.Scheduler, config.Global.MonitorInterval)

	if len(monitorJobIDs) > 0 {
		for _, id := range monitorJobIDs {
			m.Track(strings.TrimSpace(id), strings.TrimSpace(id), 0)
		}
	} else if err := trackFromJobIDsFile(m); err != nil {
		return err
	}

	if len(m.Jobs()) == 0 {
		return fmt.Errorf("no jobs to monitor")
	}
	utils.PrintMessage("Monitoring %d job(s) every %s", len(m.Jobs()), config.Global.MonitorInterval)

	// A bare monitoring run has no pending batches to advance
	plan := &queue.Plan{Strategy: queue.StrategyParallel}
	plan.Start()

	report, err := m.Watch(cmd.Context(), plan, nil)
	if err != nil {
		return err
	}

	if path, serr := report.Save(config.Global.WorkDir); serr == nil {
		utils.PrintMessage("Monitoring report written to %s", utils.StylePath(path))
	}
	utils.PrintSuccess("%d/%d job(s) completed (success rate %.0f%%)",
		report.Summary.Completed, report.Summary.TotalJobs, report.Summary.SuccessRate*100)
	return nil
}

// trackFromJobIDsFile loads "<job-id> <job-name>" lines written at submit
// time.
func trackFromJobIDsFile(m *monitor.Monitor) error {
	path := filepath.Join(config.Global.WorkDir, scripts.JobIDsFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s (submit first, or pass --job): %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if len(fields) > 1 {
			name = fields[1]
		}
		m.Track(fields[0], name, 0)
	}
	return nil
}
