package duplicates

import (
	"testing"

	"photocull/types"
)

func record(stem, hash string, sharpness float64) types.PhotoRecord {
	r := types.NewPhotoRecord("/photos/"+stem+".JPG", "/photos/"+stem+".JPG", "", stem)
	r.Hash = hash
	r.Sharpness = sharpness
	return r
}

func TestUnionFind(t *testing.T) {
	t.Parallel()

	uf := NewUnionFind(6)
	uf.Union(0, 1)
	uf.Union(1, 2)
	uf.Union(4, 5)

	if uf.Find(0) != uf.Find(2) {
		t.Error("0 and 2 should share a root after 0-1 and 1-2")
	}
	if uf.Find(0) == uf.Find(4) {
		t.Error("0 and 4 should be in different sets")
	}
	if uf.Find(3) != 3 {
		t.Errorf("Find(3) = %d, want 3 for a singleton", uf.Find(3))
	}

	uf.Union(2, 5)
	root := uf.Find(0)
	for _, x := range []int{1, 2, 4, 5} {
		if uf.Find(x) != root {
			t.Errorf("Find(%d) = %d, want %d after merging both sets", x, uf.Find(x), root)
		}
	}
}

func TestFindGroupsTransitive(t *testing.T) {
	t.Parallel()

	// A~B (8 bits) and B~C (8 bits) but A and C differ by 16 bits
	records := []types.PhotoRecord{
		record("A", "0000000000000000", 300),
		record("B", "00000000000000ff", 100),
		record("C", "000000000000ffff", 500),
		record("D", "ffffffffffffffff", 50),
	}

	if n := FindGroups(records, 10); n != 1 {
		t.Fatalf("FindGroups() = %d clusters, want 1", n)
	}

	for _, i := range []int{0, 1, 2} {
		if records[i].DuplicateGroup != 0 {
			t.Errorf("%s DuplicateGroup = %d, want 0", records[i].Stem, records[i].DuplicateGroup)
		}
	}
	if records[3].DuplicateGroup != types.NoGroup {
		t.Errorf("D DuplicateGroup = %d, want %d", records[3].DuplicateGroup, types.NoGroup)
	}

	if !records[1].IsWorstDuplicate || records[1].UniquenessScore != WorstUniquenessScore {
		t.Errorf("B should be the worst duplicate, got %+v", records[1])
	}
	for _, i := range []int{0, 2, 3} {
		if records[i].IsWorstDuplicate || records[i].UniquenessScore != 1.0 {
			t.Errorf("%s should keep uniqueness 1.0, got worst=%v score=%v",
				records[i].Stem, records[i].IsWorstDuplicate, records[i].UniquenessScore)
		}
	}
}

func TestFindGroupsSequentialIDs(t *testing.T) {
	t.Parallel()

	records := []types.PhotoRecord{
		record("A1", "0000000000000000", 200),
		record("B1", "ffffffffffffffff", 200),
		record("A2", "0000000000000001", 300),
		record("B2", "fffffffffffffffe", 100),
		record("C", "00000000ffffffff", 400),
	}

	if n := FindGroups(records, 10); n != 2 {
		t.Fatalf("FindGroups() = %d clusters, want 2", n)
	}

	want := map[string]int{"A1": 0, "A2": 0, "B1": 1, "B2": 1, "C": types.NoGroup}
	for _, r := range records {
		if r.DuplicateGroup != want[r.Stem] {
			t.Errorf("%s DuplicateGroup = %d, want %d", r.Stem, r.DuplicateGroup, want[r.Stem])
		}
	}

	worst := 0
	for _, r := range records {
		if r.IsWorstDuplicate {
			worst++
		}
	}
	if worst != 2 {
		t.Errorf("found %d worst duplicates, want one per cluster", worst)
	}
	if !records[0].IsWorstDuplicate {
		t.Error("A1 should be the worst of its cluster")
	}
	if !records[3].IsWorstDuplicate {
		t.Error("B2 should be the worst of its cluster")
	}
}

func TestFindGroupsTieKeepsFirst(t *testing.T) {
	t.Parallel()

	records := []types.PhotoRecord{
		record("X", "0000000000000000", 100),
		record("Y", "0000000000000000", 100),
	}
	FindGroups(records, 10)

	if !records[0].IsWorstDuplicate || records[1].IsWorstDuplicate {
		t.Errorf("tie should mark the first member, got X=%v Y=%v",
			records[0].IsWorstDuplicate, records[1].IsWorstDuplicate)
	}
}

func TestFindGroupsSkipsUnhashed(t *testing.T) {
	t.Parallel()

	records := []types.PhotoRecord{
		record("A", "", 10),
		record("B", "", 20),
		record("C", "0000000000000000", 30),
		record("D", "not-a-hash", 40),
	}

	if n := FindGroups(records, 64); n != 0 {
		t.Fatalf("FindGroups() = %d clusters, want 0", n)
	}
	for _, r := range records {
		if r.DuplicateGroup != types.NoGroup || r.IsWorstDuplicate || r.UniquenessScore != 1.0 {
			t.Errorf("%s was modified: %+v", r.Stem, r)
		}
	}
}

func TestFindGroupsThresholdInclusive(t *testing.T) {
	t.Parallel()

	records := []types.PhotoRecord{
		record("A", "0000000000000000", 10),
		record("B", "00000000000003ff", 20),
	}

	if n := FindGroups(records, 10); n != 1 {
		t.Errorf("distance equal to the threshold should cluster, got %d clusters", n)
	}
}
