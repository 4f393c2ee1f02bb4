package scanner

import (
	"io"
	"sync"
	"time"

	"photocull/types"
)

// Options defines the options for one culling run
type Options struct {
	FolderPath string
	DryRun     bool
	Verbose    bool
	MaxWorkers int       // worker limit, 0 uses every CPU
	Out        io.Writer // progress and startup output, nil discards
}

// ProcessImageResult holds the result of analysing one photo
type ProcessImageResult struct {
	Index        int
	Path         string
	Success      bool
	Error        error
	IsRaw        bool
	ScoringError error
}

// FileStats tracks information about the files found in the folder
type FileStats struct {
	totalFiles int
	rawFiles   int
	jpegFiles  int
	photos     int
	pairs      int
}

// Result is the outcome of a run: every rated record and the summary counts
type Result struct {
	Records []types.PhotoRecord
	Summary Summary
}

// Summary counts what a run found and wrote
type Summary struct {
	Strategy        string
	Photos          int
	Analysed        int // below Photos when the run was interrupted
	Files           int
	RAFFiles        int
	JPEGFiles       int
	Ratings         [6]int // index 1..5
	Duplicates      int
	DuplicateGroups int
	InSeries        int
	SeriesGroups    int
	SidecarsWritten int
	SidecarFailures int
	DecodeFailures  int
	ScoringFailures int
	Elapsed         time.Duration
}

// ProgressTracker tracks progress of the analysis stage
type ProgressTracker struct {
	processed       int
	errors          int
	rawProcessed    int
	scoringFailures int
	ticker          *time.Ticker
	done            chan bool
	finished        chan struct{}
	mu              sync.Mutex
	out             io.Writer
	quiet           bool
	totalFiles      int
	rawFiles        int
}
