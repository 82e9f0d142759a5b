package cfx

import (
	"path/filepath"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// CaseState classifies how far a parameterized case has progressed locally.
type CaseState string

const (
	CaseNotStarted CaseState = "not_started" // case directory missing
	CaseInProgress CaseState = "in_progress" // directory exists, no usable def
	CaseReady      CaseState = "ready"       // def file present and non-empty
	CaseSolved     CaseState = "solved"      // solver result (.res) present
)

// CaseStatus is the observed on-disk state of one case.
type CaseStatus struct {
	Pressure    float64
	Dir         string
	DefFile     string
	DefFileSize int64
	State       CaseState
}

// ScanCases inspects the working directory and reports per-case progress.
func ScanCases(cfg *config.Settings, workDir string) []CaseStatus {
	cases := CasesFor(cfg, workDir)
	statuses := make([]CaseStatus, 0, len(cases))

	for _, c := range cases {
		st := CaseStatus{
			Pressure: c.Pressure,
			Dir:      c.Dir,
			DefFile:  c.DefFile,
		}

		switch {
		case hasResultFile(c.Dir, cfg.InitialFile):
			st.State = CaseSolved
			st.DefFileSize = utils.FileSize(c.DefFile)
		case utils.FileSize(c.DefFile) > 0:
			st.State = CaseReady
			st.DefFileSize = utils.FileSize(c.DefFile)
		case utils.DirExists(c.Dir):
			st.State = CaseInProgress
		default:
			st.State = CaseNotStarted
		}

		statuses = append(statuses, st)
	}
	return statuses
}

// hasResultFile reports whether the solver has produced a result in the case
// directory. The initial values file does not count.
func hasResultFile(dir, initialFile string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.res"))
	if err != nil {
		return false
	}
	for _, m := range matches {
		if filepath.Base(m) != filepath.Base(initialFile) && utils.FileSize(m) > 0 {
			return true
		}
	}
	return false
}

// PrintStatus renders the case table on the console.
func PrintStatus(statuses []CaseStatus) {
	if len(statuses) == 0 {
		utils.PrintWarning("No cases configured")
		return
	}
	for _, st := range statuses {
		switch st.State {
		case CaseSolved:
			utils.PrintSuccess("%s Pa: solved (%s)",
				utils.FormatPressure(st.Pressure), utils.StylePath(st.Dir))
		case CaseReady:
			utils.PrintMessage("%s Pa: def ready, %s",
				utils.FormatPressure(st.Pressure), utils.FormatBytes(st.DefFileSize))
		case CaseInProgress:
			utils.PrintWarning("%s Pa: case directory exists but def file missing",
				utils.FormatPressure(st.Pressure))
		default:
			utils.PrintNote("%s Pa: not generated", utils.FormatPressure(st.Pressure))
		}
	}
}
