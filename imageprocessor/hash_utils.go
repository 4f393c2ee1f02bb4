package imageprocessor

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
)

// ComputeDifferenceHash returns the dHash of img as a hex string: the gray
// image is scaled to (size+1)x size and each bit is set where a pixel is
// darker than its right neighbour, most significant bit first
func ComputeDifferenceHash(img gocv.Mat, size int) (string, error) {
	if img.Empty() {
		return "", fmt.Errorf("cannot compute hash for empty image")
	}
	if size < 2 {
		return "", fmt.Errorf("hash size %d too small", size)
	}

	gray := toGray(img)
	defer gray.Close()

	goImg, err := gray.ToImage()
	if err != nil {
		return "", fmt.Errorf("failed to convert image: %w", err)
	}

	hash, err := goimagehash.ExtDifferenceHash(goImg, size, size)
	if err != nil {
		return "", fmt.Errorf("failed to compute dHash: %w", err)
	}

	return formatHash(hash.GetHash()), nil
}

// formatHash renders hash words as fixed-width big-endian hex
func formatHash(words []uint64) string {
	var sb strings.Builder
	for _, w := range words {
		fmt.Fprintf(&sb, "%016x", w)
	}
	return sb.String()
}

// parseHash converts a hex fingerprint back into 64-bit words
func parseHash(s string) ([]uint64, error) {
	if s == "" || len(s)%16 != 0 {
		return nil, fmt.Errorf("invalid hash length %d", len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", s, err)
	}

	words := make([]uint64, len(raw)/8)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(raw[i*8:])
	}
	return words, nil
}

// HammingDistance counts the differing bits between two fingerprints
func HammingDistance(hash1, hash2 string) (int, error) {
	w1, err := parseHash(hash1)
	if err != nil {
		return 0, err
	}
	w2, err := parseHash(hash2)
	if err != nil {
		return 0, err
	}

	h1 := goimagehash.NewExtImageHash(w1, goimagehash.DHash, len(w1)*64)
	h2 := goimagehash.NewExtImageHash(w2, goimagehash.DHash, len(w2)*64)
	return h1.Distance(h2)
}
