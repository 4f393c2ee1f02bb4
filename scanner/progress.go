package scanner

import (
	"fmt"
	"io"
	"time"

	"photocull/logging"
)

// NewProgressTracker starts consuming results and, unless quiet, prints a
// progress line twice a second
func NewProgressTracker(out io.Writer, stats FileStats, quiet bool, resultsChan <-chan ProcessImageResult) *ProgressTracker {
	if out == nil {
		out = io.Discard
	}
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan bool),
		finished:   make(chan struct{}),
		out:        out,
		quiet:      quiet,
		totalFiles: stats.photos,
		rawFiles:   stats.rawFiles,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			if p.quiet {
				continue
			}
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Errors: %d, RAW: %d)",
					p.processed, p.totalFiles, p.errors, p.rawProcessed)
			} else {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (RAW: %d)",
					p.processed, p.totalFiles, p.rawProcessed)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state until resultsChan is closed
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.finished)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		if result.IsRaw {
			p.rawProcessed++
		}
		if result.ScoringError != nil {
			p.scoringFailures++
		}

		if !result.Success {
			p.errors++
			if result.Error != nil {
				logging.LogImageProcessed(result.Path, false, result.Error.Error())
			}
		} else {
			logging.LogImageProcessed(result.Path, true, "")
		}

		p.mu.Unlock()
	}
}

// Wait blocks until every result has been consumed, then stops the display
func (p *ProgressTracker) Wait() {
	<-p.finished
	p.ticker.Stop()
	p.done <- true
}

// Counts returns the processed, decode failure and scoring failure counts
func (p *ProgressTracker) Counts() (processed, decodeFailures, scoringFailures int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.errors, p.scoringFailures
}

// PrintStartupInfo displays information about the run before starting
func PrintStartupInfo(out io.Writer, stats FileStats, options Options, strategy string) {
	if out == nil {
		return
	}
	fmt.Fprintf(out, "Scanning: %s\n", options.FolderPath)
	fmt.Fprintf(out, "Found %d photos (%d files: %d JPEG, %d RAF, %d RAF+JPEG pairs)\n",
		stats.photos, stats.totalFiles, stats.jpegFiles, stats.rawFiles, stats.pairs)
	fmt.Fprintf(out, "Scoring: %s\n", strategy)
	if options.DryRun {
		fmt.Fprintln(out, "Dry run: no sidecars will be written")
	}
}

// PrintCompletionStats displays statistics after the analysis stage
func PrintCompletionStats(out io.Writer, tracker *ProgressTracker, startTime time.Time) {
	if out == nil {
		return
	}
	elapsed := time.Since(startTime)

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if !tracker.quiet {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Analysed %d photos in %v.\n", tracker.processed, elapsed.Round(time.Millisecond))

	if tracker.errors > 0 {
		fmt.Fprintf(out, "Could not decode %d photos; they keep neutral scores.\n", tracker.errors)
		fmt.Fprintln(out, "Check the log for details.")
	}
}
