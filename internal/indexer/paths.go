package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// contentHash returns the SHA-256 hex digest used to key a ContentBlob,
// distinct from the BLAKE3 digest chunk.Hash uses to key chunk content.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// lineCount counts newline-delimited lines the way the reference line
// attribution does: zero for empty content, otherwise one more than the
// number of line breaks.
func lineCount(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	count := 1
	for _, b := range data {
		if b == '\n' {
			count++
		}
	}
	return count
}

// relativeSlashPath returns path relative to root, using forward
// slashes regardless of OS.
func relativeSlashPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("relative path for %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
