package remote

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/config"
	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// connectTimeout bounds a single SSH dial attempt.
const connectTimeout = 30 * time.Second

// maxConnectRetries caps the exponential backoff when establishing the
// connection.
const maxConnectRetries = 5

// SSHClient is an SSH connection to the cluster login node. It implements
// Runner for command execution and backs the SFTP transfer client.
type SSHClient struct {
	Host    string
	Port    int
	User    string
	KeyFile string

	password string
	client   *ssh.Client
}

// NewSSHClient builds a client from the global settings. Connect must be
// called before use.
func NewSSHClient(cfg *config.Settings) *SSHClient {
	return &SSHClient{
		Host:     cfg.SSHHost,
		Port:     cfg.SSHPort,
		User:     cfg.SSHUser,
		KeyFile:  cfg.SSHKeyFile,
		password: cfg.SSHPassword,
	}
}

// Connect dials the remote host, retrying with exponential backoff on
// transient failures.
func (c *SSHClient) Connect(ctx context.Context) error {
	auth, err := c.authMethods()
	if err != nil {
		return err
	}

	sshConfig := &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback(),
		Timeout:         connectTimeout,
	}

	addr := net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))

	operation := func() error {
		client, err := ssh.Dial("tcp", addr, sshConfig)
		if err != nil {
			utils.PrintDebug("SSH dial %s failed: %v", addr, err)
			return err
		}
		c.client = client
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxConnectRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("failed to connect to %s@%s: %w", c.User, addr, err)
	}

	utils.PrintDebug("Connected to %s@%s", c.User, addr)
	return nil
}

// authMethods assembles the SSH auth chain: explicit key file, default key
// files, then password.
func (c *SSHClient) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	keyFiles := []string{}
	if c.KeyFile != "" {
		keyFiles = append(keyFiles, c.KeyFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		keyFiles = append(keyFiles,
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_rsa"),
		)
	}

	for _, kf := range keyFiles {
		data, err := os.ReadFile(kf)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			utils.PrintWarning("Cannot parse SSH key %s: %v", kf, err)
			continue
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if c.password != "" {
		methods = append(methods, ssh.Password(c.password))
	}

	if len(methods) == 0 {
		return nil, ErrAuthUnavailable
	}
	return methods, nil
}

// hostKeyCallback verifies against ~/.ssh/known_hosts when it exists,
// otherwise accepts any host key. Clusters frequently rotate login-node
// keys, so a missing known_hosts is not fatal.
func hostKeyCallback() ssh.HostKeyCallback {
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".ssh", "known_hosts")
		if utils.FileExists(path) {
			if cb, err := knownhosts.New(path); err == nil {
				return cb
			}
		}
	}
	return ssh.InsecureIgnoreHostKey()
}

// Connected reports whether the client holds a live connection.
func (c *SSHClient) Connected() bool {
	return c.client != nil
}

// Close tears the connection down.
func (c *SSHClient) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Run executes a command on the remote host. Implements Runner.
func (c *SSHClient) Run(ctx context.Context, command string) (string, string, int, error) {
	if c.client == nil {
		return "", "", -1, ErrNotConnected
	}

	session, err := c.client.NewSession()
	if err != nil {
		return "", "", -1, fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	// ssh sessions have no native context support; cancel via Signal
	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return stdout.String(), stderr.String(), -1, ctx.Err()
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
			err = nil
		}
	}
	return stdout.String(), stderr.String(), exitCode, err
}
