package scanner

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func runTracker(t *testing.T, quiet bool) (string, *ProgressTracker) {
	t.Helper()

	var out bytes.Buffer
	results := make(chan ProcessImageResult, 2)
	tracker := NewProgressTracker(&out, FileStats{photos: 2}, quiet, results)

	results <- ProcessImageResult{Path: "/p/A.JPG", Success: true}
	results <- ProcessImageResult{Path: "/p/B.RAF", IsRaw: true, Error: errors.New("could not decode"), ScoringError: errors.New("no pixels")}
	// let the ticker fire at least once
	time.Sleep(700 * time.Millisecond)
	close(results)
	tracker.Wait()

	return out.String(), tracker
}

func TestProgressTrackerPrintsProgress(t *testing.T) {
	t.Parallel()

	out, tracker := runTracker(t, false)
	if !strings.Contains(out, "Progress: 2/2 (Errors: 1, RAW: 1)") {
		t.Errorf("progress line missing:\n%q", out)
	}

	processed, decode, scoring := tracker.Counts()
	if processed != 2 || decode != 1 || scoring != 1 {
		t.Errorf("Counts() = %d, %d, %d; want 2, 1, 1", processed, decode, scoring)
	}
}

func TestProgressTrackerQuietForVerboseRuns(t *testing.T) {
	t.Parallel()

	out, _ := runTracker(t, true)
	if strings.Contains(out, "Progress:") {
		t.Errorf("quiet tracker printed a progress line:\n%q", out)
	}
}
