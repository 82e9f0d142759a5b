// Package cfx locates the ANSYS CFX toolchain and generates CFX-Pre sessions
// and solver invocations for parameterized case studies.
package cfx

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

// Common errors
var (
	// ErrNotFound indicates no CFX installation could be located
	ErrNotFound = errors.New("CFX installation not found")

	// ErrSessionFailed indicates cfx5pre rejected or failed a session run
	ErrSessionFailed = errors.New("CFX-Pre session execution failed")

	// ErrDefMissing indicates an expected def file was not produced
	ErrDefMissing = errors.New("definition file missing or empty")
)

// Installation describes a located CFX toolchain.
type Installation struct {
	Home      string // CFX home, e.g. /usr/ansys_inc/v231/CFX
	BinDir    string // directory holding cfx5pre / cfx5solve
	PreBin    string // cfx5pre path
	SolverBin string // cfx5solve path
	Version   string // release string, e.g. "23.1" (empty until queried)
	Method    string // how the installation was found
}

// cfxEnvVars are checked in order; the first usable one wins.
var cfxEnvVars = []string{"ANSYS_ROOT", "CFX_HOME", "ANSYSROOT", "ANSYS_INC_ROOT"}

// commonRoots are the usual Linux ANSYS install locations.
var commonRoots = []string{
	"/usr/ansys_inc",
	"/opt/ansys_inc",
	"/ansys_inc",
	"/usr/local/ansys_inc",
}

// Detect locates a CFX installation: environment variables first, then the
// common install roots (newest version directory wins), finally PATH lookup
// of the cfx5pre binary.
func Detect() (*Installation, error) {
	for _, env := range cfxEnvVars {
		if root := os.Getenv(env); root != "" {
			if inst := fromRoot(root, "env:"+env); inst != nil {
				return inst, nil
			}
		}
	}

	for _, root := range commonRoots {
		if inst := fromInstallRoot(root, "common path"); inst != nil {
			return inst, nil
		}
	}

	if pre, err := exec.LookPath("cfx5pre"); err == nil {
		binDir := filepath.Dir(pre)
		inst := &Installation{
			Home:   filepath.Dir(binDir),
			BinDir: binDir,
			PreBin: pre,
			Method: "PATH",
		}
		if solver, err := exec.LookPath("cfx5solve"); err == nil {
			inst.SolverBin = solver
		}
		return inst, nil
	}

	return nil, ErrNotFound
}

// fromInstallRoot scans an ANSYS install root for vNNN/CFX version
// directories and probes the newest one first.
func fromInstallRoot(root, method string) *Installation {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) == 4 && e.Name()[0] == 'v' {
			versions = append(versions, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))

	for _, v := range versions {
		if inst := fromRoot(filepath.Join(root, v, "CFX"), method); inst != nil {
			return inst
		}
	}
	return nil
}

// fromRoot validates a candidate CFX home by checking for the binaries.
func fromRoot(home, method string) *Installation {
	binDir := filepath.Join(home, "bin")
	pre := filepath.Join(binDir, "cfx5pre")
	if _, err := os.Stat(pre); err != nil {
		// Some env vars point at the ANSYS root rather than CFX home
		if nested := fromInstallRoot(home, method); nested != nil {
			return nested
		}
		return nil
	}

	inst := &Installation{
		Home:   home,
		BinDir: binDir,
		PreBin: pre,
		Method: method,
	}
	solver := filepath.Join(binDir, "cfx5solve")
	if _, err := os.Stat(solver); err == nil {
		inst.SolverBin = solver
	}
	return inst
}

// FromHome builds an Installation from an explicitly configured CFX home,
// without probing the filesystem beyond the binary paths.
func FromHome(home string) *Installation {
	binDir := filepath.Join(home, "bin")
	return &Installation{
		Home:      home,
		BinDir:    binDir,
		PreBin:    filepath.Join(binDir, "cfx5pre"),
		SolverBin: filepath.Join(binDir, "cfx5solve"),
		Method:    "config",
	}
}
