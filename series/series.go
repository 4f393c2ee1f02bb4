// Package series groups photos shot in quick succession into bursts.
package series

import (
	"sort"
	"time"

	"photocull/logging"
	"photocull/types"
)

// Series scores assigned to burst members
const (
	MemberScore = 0.3
	BestScore   = 1.0
)

// GroupIntoSeries splits timestamped records into runs whose consecutive
// gaps are at most gap, and marks the sharpest member of each run of two or
// more. A gap equal to the threshold stays in the run. It returns the number
// of series found.
func GroupIntoSeries(records []types.PhotoRecord, gap time.Duration) int {
	var timed []int
	for i := range records {
		if records[i].HasTimestamp() {
			timed = append(timed, i)
		}
	}
	if len(timed) < 2 {
		return 0
	}

	sort.SliceStable(timed, func(a, b int) bool {
		return records[timed[a]].CapturedAt.Before(records[timed[b]].CapturedAt)
	})

	var runs [][]int
	current := []int{timed[0]}
	for k := 1; k < len(timed); k++ {
		prev, curr := records[timed[k-1]], records[timed[k]]
		if curr.CapturedAt.Sub(prev.CapturedAt) <= gap {
			current = append(current, timed[k])
			continue
		}
		if len(current) >= 2 {
			runs = append(runs, current)
		}
		current = []int{timed[k]}
	}
	if len(current) >= 2 {
		runs = append(runs, current)
	}

	logger := logging.WithComponent("series")
	for groupID, members := range runs {
		best := members[0]
		for _, idx := range members {
			records[idx].SeriesGroup = groupID
			records[idx].SeriesScore = MemberScore
			if records[idx].Sharpness > records[best].Sharpness {
				best = idx
			}
		}
		records[best].IsBestInSeries = true
		records[best].SeriesScore = BestScore

		logger.Debug().Int("series", groupID).Int("size", len(members)).Str("best", records[best].Stem).Msg("burst")
	}

	return len(runs)
}

// Gap converts a threshold in seconds to a duration
func Gap(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
