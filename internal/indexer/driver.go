// Package indexer drives one indexing run over a repository working
// tree: walking files, content-defined chunking, per-language symbol and
// reference extraction, and accumulating the result into the record
// stores an uploader or local writer streams out as a manifest.
package indexer

import (
	"context"
	"fmt"
	"os"

	"github.com/ferg-cod3s/pointerindex/internal/chunk"
	"github.com/ferg-cod3s/pointerindex/internal/extract"
	"github.com/ferg-cod3s/pointerindex/internal/observability"
	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
	"github.com/ferg-cod3s/pointerindex/internal/walk"
)

// RunConfig parameterizes one indexing run.
type RunConfig struct {
	Repository     string
	CommitSHA      string
	RootPath       string
	ScratchDir     string
	MaxFileSize    int64    // 0 = no limit
	IgnorePatterns []string // in addition to walk.DefaultIgnorePatterns

	// Metrics, if set, records content- and chunk-hash dedup counters
	// for this run.
	Metrics *observability.MetricsCollector
}

// Driver runs a single indexing pass and accumulates its artifacts.
type Driver struct {
	config   RunConfig
	walker   *walk.FileWalker
	registry *extract.Registry
}

// New creates a Driver for one run. Run opens the scratch-backed record
// stores under cfg.ScratchDir.
func New(cfg RunConfig) *Driver {
	return &Driver{
		config:   cfg,
		walker:   walk.NewFileWalker(cfg.MaxFileSize),
		registry: extract.NewRegistry(),
	}
}

// Report summarizes one completed run, for logging and health reporting.
type Report struct {
	FilesWalked     int
	FilesIndexed    int
	FilesSkipped    int
	ContentBlobs    int
	UniqueChunks    int
	SymbolRecords   int
	ReferenceCount  int
	BytesProcessed  int64
}

// Run walks the repository, chunks and extracts every readable file, and
// returns the accumulated Artifacts plus a summary Report. The caller
// owns the returned Artifacts and must Close it once uploaded/persisted.
func (d *Driver) Run(ctx context.Context) (*recordstore.Artifacts, Report, error) {
	section, err := recordstore.NewSection(d.config.ScratchDir, runScratchName(d.config))
	if err != nil {
		return nil, Report{}, fmt.Errorf("create scratch section: %w", err)
	}

	blobWriter, err := recordstore.NewWriter[recordstore.ContentBlob](section.Dir())
	if err != nil {
		return nil, Report{}, err
	}
	fileWriter, err := recordstore.NewWriter[recordstore.FilePointer](section.Dir())
	if err != nil {
		return nil, Report{}, err
	}
	symbolWriter, err := recordstore.NewWriter[recordstore.SymbolRecord](section.Dir())
	if err != nil {
		return nil, Report{}, err
	}
	namespaceWriter, err := recordstore.NewWriter[recordstore.SymbolNamespaceRecord](section.Dir())
	if err != nil {
		return nil, Report{}, err
	}
	referenceWriter, err := recordstore.NewWriter[recordstore.ReferenceRecord](section.Dir())
	if err != nil {
		return nil, Report{}, err
	}
	chunkMappingWriter, err := recordstore.NewWriter[recordstore.ChunkMapping](section.Dir())
	if err != nil {
		return nil, Report{}, err
	}

	seenContentHashes := make(map[string]struct{})
	seenChunkHashes := make(map[string]struct{})
	seenNamespaces := make(map[string]struct{})

	report := Report{}
	ignorePatterns := append(append([]string{}, walk.DefaultIgnorePatterns()...), d.config.IgnorePatterns...)

	walkErr := d.walker.Walk(ctx, d.config.RootPath, ignorePatterns, func(path string, info os.FileInfo) error {
		report.FilesWalked++

		relPath, err := relativeSlashPath(d.config.RootPath, path)
		if err != nil {
			report.FilesSkipped++
			return nil
		}

		data, err := os.ReadFile(path) // #nosec G304 -- path comes from our own tree walk
		if err != nil {
			report.FilesSkipped++
			return nil
		}

		hash := contentHash(data)
		lang, hasLang := extract.InferLanguage(relPath)

		if _, ok := seenContentHashes[hash]; !ok {
			seenContentHashes[hash] = struct{}{}
			blob := recordstore.ContentBlob{
				Hash:      hash,
				ByteLen:   int64(len(data)),
				LineCount: lineCount(data),
			}
			if hasLang {
				blob.Language = string(lang)
			}
			if err := blobWriter.Append(blob); err != nil {
				return err
			}
			report.ContentBlobs++
			if d.config.Metrics != nil {
				d.config.Metrics.RecordContentDedupMiss()
			}
		} else if d.config.Metrics != nil {
			d.config.Metrics.RecordContentDedupHit()
		}

		if err := fileWriter.Append(recordstore.FilePointer{
			Repository:  d.config.Repository,
			CommitSHA:   d.config.CommitSHA,
			FilePath:    relPath,
			ContentHash: hash,
		}); err != nil {
			return err
		}

		for i, c := range chunk.Split(data) {
			if _, ok := seenChunkHashes[c.Hash]; !ok {
				seenChunkHashes[c.Hash] = struct{}{}
				report.UniqueChunks++
				if d.config.Metrics != nil {
					d.config.Metrics.RecordChunkDedupMiss()
				}
			} else if d.config.Metrics != nil {
				d.config.Metrics.RecordChunkDedupHit()
			}
			if err := chunkMappingWriter.Append(recordstore.ChunkMapping{
				ContentHash:    hash,
				ChunkHash:      c.Hash,
				ChunkIndex:     i,
				ChunkLineCount: c.LineCount,
			}); err != nil {
				return err
			}
		}

		if hasLang {
			extraction := extract.ExtractFile(d.registry, relPath, data)

			for _, sym := range extraction.Symbols {
				if sym.Namespace != "" {
					if _, ok := seenNamespaces[sym.Namespace]; !ok {
						seenNamespaces[sym.Namespace] = struct{}{}
						if err := namespaceWriter.Append(recordstore.SymbolNamespaceRecord{Namespace: sym.Namespace}); err != nil {
							return err
						}
					}
				}
				if err := symbolWriter.Append(recordstore.SymbolRecord{
					ContentHash:    hash,
					Namespace:      sym.Namespace,
					Name:           sym.Name,
					Kind:           string(sym.Kind),
					FullyQualified: sym.FullyQualified,
				}); err != nil {
					return err
				}
				report.SymbolRecords++
			}

			for _, ref := range extraction.References {
				fq := extract.FullyQualify(lang, ref.Namespace, ref.Name)
				if err := referenceWriter.Append(recordstore.ReferenceRecord{
					ContentHash:    hash,
					Namespace:      ref.Namespace,
					Name:           ref.Name,
					FullyQualified: fq,
					Kind:           string(ref.Kind),
					Line:           ref.Line,
					Column:         ref.Column,
				}); err != nil {
					return err
				}
				report.ReferenceCount++
			}
		}

		report.FilesIndexed++
		report.BytesProcessed += int64(len(data))
		return nil
	})

	if walkErr != nil {
		_ = section.RemoveAll()
		return nil, Report{}, fmt.Errorf("walk repository: %w", walkErr)
	}

	blobStore, err := blobWriter.Finish()
	if err != nil {
		return nil, Report{}, err
	}
	fileStore, err := fileWriter.Finish()
	if err != nil {
		return nil, Report{}, err
	}
	symbolStore, err := symbolWriter.Finish()
	if err != nil {
		return nil, Report{}, err
	}
	namespaceStore, err := namespaceWriter.Finish()
	if err != nil {
		return nil, Report{}, err
	}
	referenceStore, err := referenceWriter.Finish()
	if err != nil {
		return nil, Report{}, err
	}
	chunkMappingStore, err := chunkMappingWriter.Finish()
	if err != nil {
		return nil, Report{}, err
	}

	artifacts := &recordstore.Artifacts{
		ContentBlobs:     blobStore,
		FilePointers:     fileStore,
		SymbolRecords:    symbolStore,
		SymbolNamespaces: namespaceStore,
		ReferenceRecords: referenceStore,
		ChunkMappings:    chunkMappingStore,
		Branches: []recordstore.BranchHead{
			{Repository: d.config.Repository, Branch: "", CommitSHA: d.config.CommitSHA},
		},
	}

	return artifacts, report, nil
}

func runScratchName(cfg RunConfig) string {
	return contentHash([]byte(cfg.Repository + "@" + cfg.CommitSHA))[:16]
}
