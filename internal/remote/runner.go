// Package remote runs commands and moves files to the cluster over SSH/SFTP.
package remote

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes a command and returns its output. The cluster query client
// and the submitter depend on this interface only, so tests and local runs
// can swap the SSH transport out.
type Runner interface {
	// Run executes a shell command and returns stdout, stderr and the exit code.
	// A non-zero exit code is not an error; err reports transport failures.
	Run(ctx context.Context, command string) (stdout string, stderr string, exitCode int, err error)
}

// LocalRunner executes commands on the local machine through a shell.
// Used when the tool runs directly on a cluster login node.
type LocalRunner struct {
	Shell string // defaults to /bin/sh
}

// NewLocalRunner creates a LocalRunner using /bin/sh.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{Shell: "/bin/sh"}
}

// Run executes the command via the configured shell.
func (r *LocalRunner) Run(ctx context.Context, command string) (string, string, int, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			err = nil
		}
	}

	return stdout.String(), stderr.String(), exitCode, err
}
