package remote

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// hashChunkSize is the read granularity when hashing large result files.
const hashChunkSize = 8 * 1024

// hashTimeout bounds the remote md5sum invocation.
const hashTimeout = 2 * time.Minute

// LocalMD5 computes the MD5 digest of a local file in fixed-size chunks.
func LocalMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RemoteMD5 computes the MD5 digest of a remote file via md5sum.
func RemoteMD5(runner Runner, remotePath string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), hashTimeout)
	defer cancel()

	stdout, stderr, code, err := runner.Run(ctx, fmt.Sprintf("md5sum %q", remotePath))
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("md5sum exited %d: %s", code, strings.TrimSpace(stderr))
	}

	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty md5sum output for %s", remotePath)
	}
	return fields[0], nil
}

// verifyRemote compares local and remote digests after a transfer. Hashing
// failures (md5sum missing, permission trouble) degrade to a warning rather
// than failing a transfer that very likely succeeded.
func (t *Transfer) verifyRemote(localPath, remotePath string) error {
	local, err := LocalMD5(localPath)
	if err != nil {
		utils.PrintWarning("Cannot hash %s, skipping verification: %v", localPath, err)
		return nil
	}
	remote, err := RemoteMD5(t.runner, remotePath)
	if err != nil {
		utils.PrintWarning("Cannot hash remote %s, skipping verification: %v", remotePath, err)
		return nil
	}

	if local != remote {
		return fmt.Errorf("%w: %s (local %s, remote %s)",
			ErrChecksumMismatch, remotePath, local, remote)
	}
	return nil
}
