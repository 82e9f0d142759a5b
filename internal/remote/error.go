package remote

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotConnected indicates an operation before Connect or after Close
	ErrNotConnected = errors.New("not connected to remote host")

	// ErrAuthUnavailable indicates no usable authentication method
	ErrAuthUnavailable = errors.New("no SSH authentication method available")

	// ErrChecksumMismatch indicates a transferred file failed verification
	ErrChecksumMismatch = errors.New("checksum mismatch after transfer")
)

// TransferError wraps a failed file transfer with its direction and path.
type TransferError struct {
	Op   string // "upload" or "download"
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s of %s failed: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// NewTransferError creates a TransferError.
func NewTransferError(op, path string, err error) *TransferError {
	return &TransferError{Op: op, Path: path, Err: err}
}

// IsTransferError checks if an error is a TransferError.
func IsTransferError(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}
