package scanner

import (
	"fmt"
	"io"
	"strings"

	"photocull/types"
)

var stars = [6]string{"", "★☆☆☆☆", "★★☆☆☆", "★★★☆☆", "★★★★☆", "★★★★★"}

// Summarize counts ratings and group membership over rated records
func Summarize(records []types.PhotoRecord, stats FileStats) Summary {
	s := Summary{
		Photos:    len(records),
		Files:     stats.totalFiles,
		RAFFiles:  stats.rawFiles,
		JPEGFiles: stats.jpegFiles,
	}
	for _, r := range records {
		if r.Rating >= 1 && r.Rating <= 5 {
			s.Ratings[r.Rating]++
		}
		if r.DuplicateGroup >= 0 {
			s.Duplicates++
		}
		if r.SeriesGroup >= 0 {
			s.InSeries++
		}
	}
	return s
}

// PrintSummary writes the end-of-run report
func PrintSummary(w io.Writer, s Summary, dryRun bool) {
	rule := strings.Repeat("─", 50)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "  Total: %d photos (%d files)\n", s.Photos, s.Files)
	if s.Analysed < s.Photos {
		fmt.Fprintf(w, "  Analysed before interrupt: %d\n", s.Analysed)
	}
	for r := 1; r <= 5; r++ {
		if s.Ratings[r] > 0 {
			fmt.Fprintf(w, "     %s  (%d): %d\n", stars[r], r, s.Ratings[r])
		}
	}

	if s.Duplicates > 0 {
		fmt.Fprintf(w, "  Duplicates: %d in %d groups\n", s.Duplicates, s.DuplicateGroups)
	}
	if s.InSeries > 0 {
		fmt.Fprintf(w, "  In series: %d in %d series\n", s.InSeries, s.SeriesGroups)
	}
	if s.DecodeFailures > 0 {
		fmt.Fprintf(w, "  Could not decode: %d\n", s.DecodeFailures)
	}
	if s.ScoringFailures > 0 {
		fmt.Fprintf(w, "  Scoring failed: %d\n", s.ScoringFailures)
	}

	if dryRun {
		fmt.Fprintf(w, "  XMP sidecars (dry-run): %d\n", s.SidecarsWritten)
	} else {
		fmt.Fprintf(w, "  XMP sidecars written: %d\n", s.SidecarsWritten)
	}
	if s.SidecarFailures > 0 {
		fmt.Fprintf(w, "  XMP sidecars failed: %d\n", s.SidecarFailures)
	}
	fmt.Fprintf(w, "%s\n", rule)
}
