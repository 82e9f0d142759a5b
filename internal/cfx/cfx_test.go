package cfx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
)

func testSettings() *config.Settings {
	config.LoadDefaults()
	s := config.Global
	s.BaseModel = "model.cfx"
	return &s
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{"banner", "ANSYS CFX-Pre 23.1\nUsage: cfx5pre [options]", "23.1", false},
		{"embedded", "Release 2023 R1 (23.1.0)", "23.1", false},
		{"none", "no digits here", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	if CompareVersions("23.1", "19.0") <= 0 {
		t.Errorf("23.1 should compare above 19.0")
	}
	if CompareVersions("19.0", "19.0") != 0 {
		t.Errorf("equal versions should compare equal")
	}
	if CompareVersions("18.2", "19.0") >= 0 {
		t.Errorf("18.2 should compare below 19.0")
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("23.1") {
		t.Errorf("23.1 should be supported")
	}
	if IsSupported("18.2") {
		t.Errorf("18.2 should not be supported")
	}
}

func TestCasesFor(t *testing.T) {
	cfg := testSettings()
	cfg.Pressures = []float64{2187, 2189}

	cases := CasesFor(cfg, "/work")
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].Dir != filepath.Join("/work", "P_Out_2187") {
		t.Errorf("case dir = %q", cases[0].Dir)
	}
	if filepath.Base(cases[1].DefFile) != "P_Out_2189.def" {
		t.Errorf("def file = %q", cases[1].DefFile)
	}
}

func TestWriteSession(t *testing.T) {
	cfg := testSettings()
	dir := t.TempDir()

	path, err := WriteSession(cfg, dir)
	if err != nil {
		t.Fatalf("WriteSession: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	body := string(data)

	// One load of the base model, one writeCaseFile per pressure
	if strings.Count(body, ">load filename=model.cfx") != 1 {
		t.Errorf("session should load the base model exactly once")
	}
	if strings.Count(body, ">writeCaseFile") != len(cfg.Pressures) {
		t.Errorf("expected %d writeCaseFile commands", len(cfg.Pressures))
	}
	for _, want := range []string{
		"FLOW: Flow Analysis 1",
		"DOMAIN: S1",
		"BOUNDARY: S1 Outlet",
		"Location = R2_OUTFLOW",
		"Relative Pressure = 2187 [Pa]",
		"Relative Pressure = 2189 [Pa]",
		"Pressure Profile Blend = 0.05",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("session body missing %q", want)
		}
	}

	// Case directories are created up front
	for _, c := range CasesFor(cfg, dir) {
		if fi, err := os.Stat(c.Dir); err != nil || !fi.IsDir() {
			t.Errorf("case directory not created: %s", c.Dir)
		}
	}
}

func TestValidateDefFiles(t *testing.T) {
	cfg := testSettings()
	cfg.Pressures = []float64{2187, 2189}
	dir := t.TempDir()

	cases := CasesFor(cfg, dir)
	if err := os.MkdirAll(cases[0].Dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cases[0].DefFile, []byte("def"), 0644); err != nil {
		t.Fatal(err)
	}

	results := ValidateDefFiles(cfg, dir)
	if !results[cases[0].DefFile] {
		t.Errorf("existing def file should validate")
	}
	if results[cases[1].DefFile] {
		t.Errorf("missing def file should not validate")
	}
}

func TestBuildSolveCommandDistributed(t *testing.T) {
	inst := FromHome("/usr/ansys_inc/v231/CFX")
	cmd := BuildSolveCommand(inst, "/work/P_Out_2187/P_Out_2187.def", SolverOptions{
		NodesSpec:  "n44:ppn=28+n45:ppn=16",
		InitialRes: "INI.res",
	})

	if cmd.Dir != "/work/P_Out_2187" {
		t.Errorf("working dir = %q", cmd.Dir)
	}
	args := strings.Join(cmd.Args, " ")
	for _, want := range []string{
		"-def P_Out_2187.def",
		"-ini-file INI.res",
		"-par-dist n44:ppn=28+n45:ppn=16",
		"-start-method Platform MPI Distributed Parallel",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %v", want, cmd.Args)
		}
	}
}

func TestBuildSolveCommandLocal(t *testing.T) {
	inst := FromHome("/opt/cfx")
	cmd := BuildSolveCommand(inst, "/work/case/run.def", SolverOptions{Partitions: 32})

	args := strings.Join(cmd.Args, " ")
	if !strings.Contains(args, "-part 32") {
		t.Errorf("expected local partitioning, got %v", cmd.Args)
	}
	if strings.Contains(args, "-par-dist") {
		t.Errorf("local run must not carry a nodes spec: %v", cmd.Args)
	}
	if !strings.Contains(args, startMethodLocal) {
		t.Errorf("expected local start method, got %v", cmd.Args)
	}
}

func TestScanCases(t *testing.T) {
	cfg := testSettings()
	cfg.Pressures = []float64{2187, 2189, 2191}
	dir := t.TempDir()
	cases := CasesFor(cfg, dir)

	// 2187: solved. 2189: def ready. 2191: untouched.
	for _, c := range cases[:2] {
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(c.DefFile, []byte("def"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(cases[0].Dir, "P_Out_2187_001.res"), []byte("res"), 0644); err != nil {
		t.Fatal(err)
	}
	// The initial values file alone must not count as a result
	if err := os.WriteFile(filepath.Join(cases[1].Dir, "INI.res"), []byte("ini"), 0644); err != nil {
		t.Fatal(err)
	}

	statuses := ScanCases(cfg, dir)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].State != CaseSolved {
		t.Errorf("case 2187 state = %s, want solved", statuses[0].State)
	}
	if statuses[1].State != CaseReady {
		t.Errorf("case 2189 state = %s, want ready", statuses[1].State)
	}
	if statuses[2].State != CaseNotStarted {
		t.Errorf("case 2191 state = %s, want not started", statuses[2].State)
	}
}

func TestFromRootRejectsMissingBinary(t *testing.T) {
	if inst := fromRoot(t.TempDir(), "test"); inst != nil {
		t.Errorf("empty directory should not be a CFX home, got %+v", inst)
	}
}

func TestDetectFromEnv(t *testing.T) {
	home := t.TempDir()
	binDir := filepath.Join(home, "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, bin := range []string{"cfx5pre", "cfx5solve"} {
		if err := os.WriteFile(filepath.Join(binDir, bin), []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("CFX_HOME", home)
	t.Setenv("ANSYS_ROOT", "")

	inst, err := Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if inst.Home != home {
		t.Errorf("home = %q, want %q", inst.Home, home)
	}
	if inst.SolverBin == "" {
		t.Errorf("solver binary not picked up")
	}
	if inst.Method != "env:CFX_HOME" {
		t.Errorf("method = %q", inst.Method)
	}
}
