// Package duplicates clusters near-identical photos by perceptual hash.
package duplicates

import (
	"photocull/imageprocessor"
	"photocull/logging"
	"photocull/types"
)

// WorstUniquenessScore is given to the weakest member of each cluster
const WorstUniquenessScore = 0.3

// FindGroups unions every pair of hashed records within threshold bits and
// marks the least sharp member of each cluster. Clusters are transitive:
// A~B and B~C put A, B and C together even when A and C are far apart.
// It returns the number of clusters found.
func FindGroups(records []types.PhotoRecord, threshold int) int {
	logger := logging.WithComponent("duplicates")

	var valid []int
	for i := range records {
		if records[i].Hash != "" {
			valid = append(valid, i)
		}
	}
	if len(valid) < 2 {
		return 0
	}

	uf := NewUnionFind(len(records))
	for a := 0; a < len(valid); a++ {
		for b := a + 1; b < len(valid); b++ {
			ia, ib := valid[a], valid[b]
			dist, err := imageprocessor.HammingDistance(records[ia].Hash, records[ib].Hash)
			if err != nil {
				logger.Debug().Err(err).Str("a", records[ia].Stem).Str("b", records[ib].Stem).Msg("hashes not comparable")
				continue
			}
			if dist <= threshold {
				uf.Union(ia, ib)
			}
		}
	}

	// Group members by root, ordered by their first member
	var roots []int
	members := make(map[int][]int)
	for i := range records {
		root := uf.Find(i)
		if _, seen := members[root]; !seen {
			roots = append(roots, root)
		}
		members[root] = append(members[root], i)
	}

	groupID := 0
	for _, root := range roots {
		group := members[root]
		if len(group) < 2 {
			continue
		}

		worst := group[0]
		for _, idx := range group {
			records[idx].DuplicateGroup = groupID
			if records[idx].Sharpness < records[worst].Sharpness {
				worst = idx
			}
		}
		records[worst].IsWorstDuplicate = true
		records[worst].UniquenessScore = WorstUniquenessScore

		logger.Debug().Int("group", groupID).Int("size", len(group)).Str("worst", records[worst].Stem).Msg("duplicate cluster")
		groupID++
	}

	return groupID
}
