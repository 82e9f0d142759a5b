package remote

import (
	"fmt"

	"github.com/rcrowley/go-metrics"

	"github.com/CHOSENX-GPU/AutoExSim-CFX/internal/utils"
)

// TransferStats aggregates transfer counters across a run.
type TransferStats struct {
	FilesUploaded   metrics.Counter
	FilesDownloaded metrics.Counter
	BytesUploaded   metrics.Counter
	BytesDownloaded metrics.Counter
	Failures        metrics.Counter
}

// Stats is the package-level transfer accounting, shared by all Transfer
// instances in a run.
var Stats = newTransferStats(metrics.NewRegistry())

func newTransferStats(r metrics.Registry) *TransferStats {
	return &TransferStats{
		FilesUploaded:   metrics.GetOrRegisterCounter("transfer.files.uploaded", r),
		FilesDownloaded: metrics.GetOrRegisterCounter("transfer.files.downloaded", r),
		BytesUploaded:   metrics.GetOrRegisterCounter("transfer.bytes.uploaded", r),
		BytesDownloaded: metrics.GetOrRegisterCounter("transfer.bytes.downloaded", r),
		Failures:        metrics.GetOrRegisterCounter("transfer.failures", r),
	}
}

// Reset zeroes all counters. Used between workflow runs and in tests.
func (s *TransferStats) Reset() {
	s.FilesUploaded.Clear()
	s.FilesDownloaded.Clear()
	s.BytesUploaded.Clear()
	s.BytesDownloaded.Clear()
	s.Failures.Clear()
}

// Summary renders a one-line human-readable account of the run's transfers.
func (s *TransferStats) Summary() string {
	return fmt.Sprintf("%d file(s) up (%s), %d file(s) down (%s), %d failure(s)",
		s.FilesUploaded.Count(), utils.FormatBytes(s.BytesUploaded.Count()),
		s.FilesDownloaded.Count(), utils.FormatBytes(s.BytesDownloaded.Count()),
		s.Failures.Count())
}

// PrintSummary writes the transfer summary to the console.
func (s *TransferStats) PrintSummary() {
	utils.PrintMessage("Transfer summary: %s", s.Summary())
}
