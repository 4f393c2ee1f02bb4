package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"photocull/imageprocessor"
	"photocull/types"
)

// ErrNoPhotos is returned when a folder holds no supported photo
var ErrNoPhotos = errors.New("no photos found")

// FindPhotos lists the supported photos directly inside folder, sorted
func FindPhotos(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", folder, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !imageprocessor.IsImageFile(entry.Name()) {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		// follows symlinks
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}

	sort.Strings(files)
	return files, nil
}

// PairByStem merges files sharing a stem into one record. The JPEG is the
// primary analysis file when present, else the RAF. Stems are compared
// case-sensitively; only the extension ignores case.
func PairByStem(files []string) []types.PhotoRecord {
	byStem := make(map[string]map[string]string)
	for _, f := range files {
		base := filepath.Base(f)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		if byStem[stem] == nil {
			byStem[stem] = make(map[string]string)
		}
		byStem[stem][strings.ToLower(ext)] = f
	}

	stems := make([]string, 0, len(byStem))
	for stem := range byStem {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	records := make([]types.PhotoRecord, 0, len(stems))
	for _, stem := range stems {
		exts := byStem[stem]
		jpegPath := firstOf(exts, imageprocessor.JPEGExtensions)
		rafPath := firstOf(exts, imageprocessor.RawExtensions)

		path := jpegPath
		if path == "" {
			path = rafPath
		}
		if path == "" {
			continue
		}
		records = append(records, types.NewPhotoRecord(path, jpegPath, rafPath, stem))
	}
	return records
}

func firstOf(exts map[string]string, order []string) string {
	for _, ext := range order {
		if p, ok := exts[ext]; ok {
			return p
		}
	}
	return ""
}

// countFiles classifies the files and records found in the folder
func countFiles(files []string, records []types.PhotoRecord) FileStats {
	stats := FileStats{totalFiles: len(files), photos: len(records)}
	for _, f := range files {
		switch {
		case imageprocessor.IsRawFormat(f):
			stats.rawFiles++
		case imageprocessor.IsJPEGFormat(f):
			stats.jpegFiles++
		}
	}
	for _, r := range records {
		if r.JPEGPath != "" && r.RAFPath != "" {
			stats.pairs++
		}
	}
	return stats
}
