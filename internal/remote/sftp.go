package remote

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/cenkalti/backoff"
	"github.com/pkg/sftp"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// Transfer moves files between the local machine and the cluster over SFTP.
type Transfer struct {
	sftp *sftp.Client

	// Retries is the per-file retry count on transfer failure.
	Retries int

	// VerifyChecksums enables MD5 verification after each file transfer.
	// Script files are exempt: line ending conversion changes their hash.
	VerifyChecksums bool

	// runner executes remote hashing commands for verification.
	runner Runner
}

// NewTransfer opens an SFTP channel on an established SSH connection.
func NewTransfer(c *SSHClient, retries int, verify bool) (*Transfer, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to open SFTP channel: %w", err)
	}
	return &Transfer{
		sftp:            client,
		Retries:         retries,
		VerifyChecksums: verify,
		runner:          c,
	}, nil
}

// Close shuts the SFTP channel down.
func (t *Transfer) Close() error {
	return t.sftp.Close()
}

// MkdirAll creates a remote directory tree.
func (t *Transfer) MkdirAll(remoteDir string) error {
	return t.sftp.MkdirAll(remoteDir)
}

// retryPolicy builds the per-file backoff policy.
func (t *Transfer) retryPolicy() backoff.BackOff {
	retries := t.Retries
	if retries < 1 {
		retries = 1
	}
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries))
}

// UploadFile copies one local file to the cluster. Script files get their
// line endings converted to LF on the way up.
func (t *Transfer) UploadFile(localPath, remotePath string) error {
	operation := func() error {
		return t.uploadOnce(localPath, remotePath)
	}
	if err := backoff.Retry(operation, t.retryPolicy()); err != nil {
		Stats.Failures.Inc(1)
		return NewTransferError("upload", localPath, err)
	}
	return nil
}

func (t *Transfer) uploadOnce(localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return backoff.Permanent(err)
	}

	converted := false
	if utils.IsScriptFile(localPath) {
		if fixed := normalizeLineEndings(data); !bytes.Equal(fixed, data) {
			data = fixed
			converted = true
			utils.PrintDebug("Converted line endings: %s", localPath)
		}
	}

	if err := t.sftp.MkdirAll(path.Dir(remotePath)); err != nil {
		return err
	}

	f, err := t.sftp.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if utils.IsScriptFile(localPath) {
		if err := t.sftp.Chmod(remotePath, 0755); err != nil {
			utils.PrintDebug("chmod %s failed: %v", remotePath, err)
		}
	}

	// A converted script no longer matches the local hash
	if t.VerifyChecksums && !converted {
		if err := t.verifyRemote(localPath, remotePath); err != nil {
			return err
		}
	}

	Stats.FilesUploaded.Inc(1)
	Stats.BytesUploaded.Inc(int64(len(data)))
	return nil
}

// UploadDir recursively copies a local directory tree to the cluster.
func (t *Transfer) UploadDir(localDir, remoteDir string) error {
	return filepath.Walk(localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		remotePath := path.Join(remoteDir, filepath.ToSlash(rel))

		if info.IsDir() {
			return t.sftp.MkdirAll(remotePath)
		}
		return t.UploadFile(p, remotePath)
	})
}

// DownloadFile copies one remote file to the local machine.
func (t *Transfer) DownloadFile(remotePath, localPath string) error {
	operation := func() error {
		return t.downloadOnce(remotePath, localPath)
	}
	if err := backoff.Retry(operation, t.retryPolicy()); err != nil {
		Stats.Failures.Inc(1)
		return NewTransferError("download", remotePath, err)
	}
	return nil
}

func (t *Transfer) downloadOnce(remotePath, localPath string) error {
	src, err := t.sftp.Open(remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := utils.EnsureDir(filepath.Dir(localPath)); err != nil {
		return backoff.Permanent(err)
	}

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, utils.PermFile)
	if err != nil {
		return backoff.Permanent(err)
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if t.VerifyChecksums {
		if err := t.verifyRemote(localPath, remotePath); err != nil {
			return err
		}
	}

	Stats.FilesDownloaded.Inc(1)
	Stats.BytesDownloaded.Inc(n)
	return nil
}

// DownloadDir recursively copies a remote directory tree to the local
// machine.
func (t *Transfer) DownloadDir(remoteDir, localDir string) error {
	walker := t.sftp.Walk(remoteDir)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(remoteDir, walker.Path())
		if err != nil {
			return err
		}
		localPath := filepath.Join(localDir, rel)

		if walker.Stat().IsDir() {
			if err := utils.EnsureDir(localPath); err != nil {
				return err
			}
			continue
		}
		if err := t.DownloadFile(walker.Path(), localPath); err != nil {
			return err
		}
	}
	return nil
}

// Glob matches remote paths against a shell pattern.
func (t *Transfer) Glob(pattern string) ([]string, error) {
	return t.sftp.Glob(pattern)
}

// Remove deletes a remote file or empty directory.
func (t *Transfer) Remove(remotePath string) error {
	return t.sftp.Remove(remotePath)
}

// RemoveAll deletes a remote directory tree, deepest entries first.
func (t *Transfer) RemoveAll(remoteDir string) error {
	var files, dirs []string
	walker := t.sftp.Walk(remoteDir)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return err
		}
		if walker.Stat().IsDir() {
			dirs = append(dirs, walker.Path())
		} else {
			files = append(files, walker.Path())
		}
	}

	for _, f := range files {
		if err := t.sftp.Remove(f); err != nil {
			return err
		}
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := t.sftp.RemoveDirectory(dirs[i]); err != nil {
			return err
		}
	}
	return nil
}

// normalizeLineEndings converts CRLF to LF. Scripts written on Windows
// otherwise fail with "bad interpreter" on the cluster.
func normalizeLineEndings(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}
