package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
	"github.com/ferg-cod3s/pointerindex/internal/store"
)

// reassembleManifest concatenates chunk data in ascending chunk_index,
// validating contiguity and total-count agreement before returning the
// raw (possibly zstd-compressed) manifest bytes.
func reassembleManifest(chunks []store.UploadChunkRow) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks uploaded for manifest", ErrValidation)
	}

	expectedTotal := chunks[0].TotalChunks
	if expectedTotal <= 0 {
		return nil, fmt.Errorf("%w: invalid total chunk count", ErrValidation)
	}

	var buf bytes.Buffer
	for i, c := range chunks {
		if c.TotalChunks != expectedTotal {
			return nil, fmt.Errorf("%w: inconsistent manifest chunk metadata", ErrValidation)
		}
		if c.ChunkIndex != i {
			return nil, fmt.Errorf("%w: missing or out-of-order manifest chunks", ErrValidation)
		}
		buf.Write(c.Data)
	}

	if len(chunks) != expectedTotal {
		return nil, fmt.Errorf("%w: missing manifest chunks", ErrValidation)
	}

	return buf.Bytes(), nil
}

func decodeManifest(raw []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return raw, nil
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open zstd decoder: %v", ErrValidation, err)
	}
	defer decoder.Close()

	decoded, err := decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress manifest: %v", ErrValidation, err)
	}
	return decoded, nil
}

// parseManifestNDJSON reads the tagged-variant manifest stream and
// distributes each line's payload into the matching ManifestReport field.
// symbol_namespace lines are accepted and discarded: namespaces live
// directly on symbol/reference rows rather than a dedicated table.
func parseManifestNDJSON(raw []byte) (store.ManifestReport, error) {
	var report store.ManifestReport

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var section manifestSection
		if err := json.Unmarshal(line, &section); err != nil {
			return report, fmt.Errorf("%w: malformed manifest line: %v", ErrValidation, err)
		}

		switch section.Section {
		case "content_blob":
			var v recordstore.ContentBlob
			if err := json.Unmarshal(section.Payload, &v); err != nil {
				return report, fmt.Errorf("%w: malformed content_blob payload: %v", ErrValidation, err)
			}
			report.ContentBlobs = append(report.ContentBlobs, v)
		case "file_pointer":
			var v recordstore.FilePointer
			if err := json.Unmarshal(section.Payload, &v); err != nil {
				return report, fmt.Errorf("%w: malformed file_pointer payload: %v", ErrValidation, err)
			}
			report.FilePointers = append(report.FilePointers, v)
		case "symbol_record":
			var v recordstore.SymbolRecord
			if err := json.Unmarshal(section.Payload, &v); err != nil {
				return report, fmt.Errorf("%w: malformed symbol_record payload: %v", ErrValidation, err)
			}
			report.SymbolRecords = append(report.SymbolRecords, v)
		case "symbol_namespace":
			// accepted, no table: namespace is carried inline on symbol
			// and reference rows.
		case "reference_record":
			var v recordstore.ReferenceRecord
			if err := json.Unmarshal(section.Payload, &v); err != nil {
				return report, fmt.Errorf("%w: malformed reference_record payload: %v", ErrValidation, err)
			}
			report.ReferenceRecords = append(report.ReferenceRecords, v)
		case "branch_head":
			var v recordstore.BranchHead
			if err := json.Unmarshal(section.Payload, &v); err != nil {
				return report, fmt.Errorf("%w: malformed branch_head payload: %v", ErrValidation, err)
			}
			report.Branches = append(report.Branches, v)
		default:
			return report, fmt.Errorf("%w: unknown manifest section %q", ErrValidation, section.Section)
		}
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("%w: read manifest: %v", ErrValidation, err)
	}

	return report, nil
}
