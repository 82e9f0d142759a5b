package cfx

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// SessionFilename is the CFX-Pre session written into the working directory.
const SessionFilename = "create_def.pre"

// sessionTimeout caps a cfx5pre batch run; def generation for a handful of
// cases finishes in minutes.
const sessionTimeout = 1 * time.Hour

// CaseSpec describes one parameterized case derived from a back pressure.
type CaseSpec struct {
	Pressure float64
	Dir      string // case directory, e.g. P_Out_2187
	DefFile  string // def file path inside Dir
}

// CasesFor expands the configured pressure list into case specs rooted at
// workDir.
func CasesFor(cfg *config.Settings, workDir string) []CaseSpec {
	cases := make([]CaseSpec, 0, len(cfg.Pressures))
	for _, p := range cfg.Pressures {
		tag := utils.FormatPressure(p)
		dir := filepath.Join(workDir, cfg.FolderPrefix+tag)
		cases = append(cases, CaseSpec{
			Pressure: p,
			Dir:      dir,
			DefFile:  filepath.Join(dir, cfg.DefFilePrefix+tag+".def"),
		})
	}
	return cases
}

// WriteSession generates the CFX-Pre session file that loads the base model
// once, then for every back pressure edits the outlet boundary and writes the
// case def file. Returns the session file path.
func WriteSession(cfg *config.Settings, workDir string) (string, error) {
	cases := CasesFor(cfg, workDir)
	for _, c := range cases {
		if err := utils.EnsureDir(c.Dir); err != nil {
			return "", fmt.Errorf("failed to create case directory: %w", err)
		}
	}

	path := filepath.Join(workDir, SessionFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, utils.PermFile)
	if err != nil {
		return "", fmt.Errorf("failed to create session file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	writeSessionBody(w, cfg, cases)
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to write session file: %w", err)
	}
	return path, nil
}

func writeSessionBody(w *bufio.Writer, cfg *config.Settings, cases []CaseSpec) {
	fmt.Fprintf(w, "# CFX-Pre session generated by autoexsim %s\n", config.VERSION)
	fmt.Fprintf(w, "# Base model: %s\n", cfg.BaseModel)
	fmt.Fprintf(w, "# Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "COMMAND FILE:\n")
	fmt.Fprintf(w, "  CFX Pre Version = *\n")
	fmt.Fprintf(w, "END\n\n")

	fmt.Fprintf(w, ">load filename=%s, mode=cfx, overwrite=yes\n\n", cfg.BaseModel)

	for _, c := range cases {
		fmt.Fprintf(w, "# Case: outlet pressure %s Pa\n", utils.FormatPressure(c.Pressure))
		fmt.Fprintf(w, ">update\n")
		fmt.Fprintf(w, "FLOW: %s\n", cfg.FlowAnalysis)
		fmt.Fprintf(w, "  DOMAIN: %s\n", cfg.Domain)
		fmt.Fprintf(w, "    BOUNDARY: %s\n", cfg.OutletBoundary)
		fmt.Fprintf(w, "      Boundary Type = OUTLET\n")
		fmt.Fprintf(w, "      Location = %s\n", cfg.OutletLocation)
		fmt.Fprintf(w, "      BOUNDARY CONDITIONS:\n")
		fmt.Fprintf(w, "        MASS AND MOMENTUM:\n")
		fmt.Fprintf(w, "          Option = Static Pressure\n")
		fmt.Fprintf(w, "          Relative Pressure = %s [Pa]\n", utils.FormatPressure(c.Pressure))
		fmt.Fprintf(w, "          Pressure Profile Blend = %s\n", cfg.PressureBlend)
		fmt.Fprintf(w, "        END\n")
		fmt.Fprintf(w, "      END\n")
		fmt.Fprintf(w, "    END\n")
		fmt.Fprintf(w, "  END\n")
		fmt.Fprintf(w, "END\n")
		fmt.Fprintf(w, ">writeCaseFile filename=%s, operation=write def file\n\n", c.DefFile)
	}
}

// RunSession executes a session file in batch mode with the located cfx5pre.
func (inst *Installation) RunSession(ctx context.Context, sessionFile string) error {
	if !utils.FileExists(sessionFile) {
		return fmt.Errorf("session file does not exist: %s", sessionFile)
	}

	ctx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, inst.PreBin, "-batch", sessionFile)
	cmd.Dir = filepath.Dir(sessionFile)

	out, err := cmd.CombinedOutput()
	if err != nil {
		utils.PrintDebug("cfx5pre output:\n%s", string(out))
		return fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	return nil
}

// GenerateCases writes and executes the session, then verifies that every
// expected def file was produced. Returns the generated def file paths.
func GenerateCases(ctx context.Context, inst *Installation, cfg *config.Settings, workDir string) ([]string, error) {
	if !utils.FileExists(cfg.BaseModel) {
		return nil, fmt.Errorf("base model does not exist: %s", cfg.BaseModel)
	}

	sessionFile, err := WriteSession(cfg, workDir)
	if err != nil {
		return nil, err
	}
	utils.PrintMessage("Running CFX-Pre session %s", sessionFile)

	if err := inst.RunSession(ctx, sessionFile); err != nil {
		return nil, err
	}

	var generated []string
	for _, c := range CasesFor(cfg, workDir) {
		if utils.FileSize(c.DefFile) == 0 {
			return generated, fmt.Errorf("%w: %s", ErrDefMissing, c.DefFile)
		}
		generated = append(generated, c.DefFile)
	}
	utils.PrintSuccess("Generated %d definition file(s)", len(generated))
	return generated, nil
}

// ValidateDefFiles checks that every case def file exists and is non-empty.
// Returns a map from def path to validity.
func ValidateDefFiles(cfg *config.Settings, workDir string) map[string]bool {
	results := make(map[string]bool)
	for _, c := range CasesFor(cfg, workDir) {
		results[c.DefFile] = utils.FileSize(c.DefFile) > 0
	}
	return results
}
