// Package chunk implements content-defined chunking (CDC) over file bytes,
// producing a stable, content-sensitive sequence of chunks suitable for
// cross-file deduplication.
package chunk

import (
	"sort"

	"lukechampine.com/blake3"
)

const (
	// smallFileThreshold is the size at or below which a file becomes one chunk.
	smallFileThreshold = 8 * 1024

	// FastCDC parameters (bytes).
	minSize = 2 * 1024
	avgSize = 16 * 1024
	maxSize = 32 * 1024

	// HashAlgorithm names the algorithm used to key chunks.
	HashAlgorithm = "blake3"
)

// Chunk is one content-defined slice of a file, with its line attribution.
type Chunk struct {
	Hash       string
	ByteOffset int
	Length     int
	StartLine  int
	LineCount  int
}

// Split divides data into content-defined chunks. Files at or under
// smallFileThreshold always yield exactly one chunk covering the whole
// file; larger files are split with a FastCDC-style rolling hash.
func Split(data []byte) []Chunk {
	if len(data) == 0 {
		return nil
	}

	newlineOffsets := newlineOffsets(data)

	var bounds []int
	if len(data) <= smallFileThreshold {
		bounds = []int{0, len(data)}
	} else {
		bounds = fastCDCBoundaries(data)
	}

	chunks := make([]Chunk, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		start, end := bounds[i], bounds[i+1]
		length := end - start
		if length == 0 {
			continue
		}

		startLine := 1 + countBelow(newlineOffsets, start)
		endLine := 1 + countBelow(newlineOffsets, end-1)

		chunks = append(chunks, Chunk{
			Hash:       Hash(data[start:end]),
			ByteOffset: start,
			Length:     length,
			StartLine:  startLine,
			LineCount:  endLine - startLine + 1,
		})
	}

	return chunks
}

// Hash returns the BLAKE3 hex digest of a byte slice.
func Hash(b []byte) string {
	sum := blake3.Sum256(b)
	return hexEncode(sum[:])
}

func newlineOffsets(data []byte) []int {
	offsets := make([]int, 0, len(data)/64)
	for i, b := range data {
		if b == '\n' {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// countBelow returns how many elements of sorted offsets are strictly less
// than target.
func countBelow(offsets []int, target int) int {
	return sort.Search(len(offsets), func(i int) bool { return offsets[i] >= target })
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
