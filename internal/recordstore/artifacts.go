package recordstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Artifacts aggregates one indexing run's spilled record stores and the
// in-memory branch head list, and knows how to stream them out as the
// manifest NDJSON format: one `{"section":"<kind>","payload":{...}}` line
// per record, sections in a fixed order.
type Artifacts struct {
	ContentBlobs      *Store[ContentBlob]
	FilePointers      *Store[FilePointer]
	SymbolRecords     *Store[SymbolRecord]
	SymbolNamespaces  *Store[SymbolNamespaceRecord]
	ReferenceRecords  *Store[ReferenceRecord]
	ChunkMappings     *Store[ChunkMapping]
	Branches          []BranchHead
}

// WriteManifestNDJSON streams every record across all sections, in the
// fixed order content_blob, file_pointer, symbol_record,
// symbol_namespace, reference_record, branch_head.
func (a *Artifacts) WriteManifestNDJSON(w io.Writer) error {
	if err := writeStoreSection(w, "content_blob", a.ContentBlobs); err != nil {
		return err
	}
	if err := writeStoreSection(w, "file_pointer", a.FilePointers); err != nil {
		return err
	}
	if err := writeStoreSection(w, "symbol_record", a.SymbolRecords); err != nil {
		return err
	}
	if err := writeStoreSection(w, "symbol_namespace", a.SymbolNamespaces); err != nil {
		return err
	}
	if err := writeStoreSection(w, "reference_record", a.ReferenceRecords); err != nil {
		return err
	}

	for _, branch := range a.Branches {
		payload, err := json.Marshal(branch)
		if err != nil {
			return fmt.Errorf("marshal branch head: %w", err)
		}
		if err := writeManifestLine(w, "branch_head", payload); err != nil {
			return err
		}
	}

	return nil
}

func writeStoreSection[T any](w io.Writer, section string, store *Store[T]) error {
	if store == nil {
		return nil
	}
	return store.ForEachRawLine(func(line []byte) error {
		return writeManifestLine(w, section, line)
	})
}

func writeManifestLine(w io.Writer, section string, payload []byte) error {
	var buf bytes.Buffer
	buf.WriteString(`{"section":"`)
	buf.WriteString(section)
	buf.WriteString(`","payload":`)
	buf.Write(payload)
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("write manifest line: %w", err)
	}
	return nil
}

// Close removes every store's backing spill file.
func (a *Artifacts) Close() {
	closeIfSet(a.ContentBlobs)
	closeIfSet(a.FilePointers)
	closeIfSet(a.SymbolRecords)
	closeIfSet(a.SymbolNamespaces)
	closeIfSet(a.ReferenceRecords)
	closeIfSet(a.ChunkMappings)
}

func closeIfSet[T any](s *Store[T]) {
	if s != nil {
		_ = s.Close()
	}
}
