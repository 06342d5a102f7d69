package store

import (
	"context"
	"fmt"
)

// SearchHit is one full-text match against indexed blob content.
type SearchHit struct {
	ContentHash string
	Language    string
	Snippet     string
	Rank        float64
}

// SearchContent runs a full-text query over indexed blob content,
// ranked by SQLite's bm25 scoring (lower is more relevant).
func (s *Store) SearchContent(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			content_blobs_fts.hash,
			content_blobs.language,
			snippet(content_blobs_fts, 1, '[', ']', '...', 10),
			bm25(content_blobs_fts)
		FROM content_blobs_fts
		JOIN content_blobs ON content_blobs.hash = content_blobs_fts.hash
		WHERE content_blobs_fts MATCH ?
		ORDER BY bm25(content_blobs_fts)
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		var language *string
		if err := rows.Scan(&hit.ContentHash, &language, &hit.Snippet, &hit.Rank); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		if language != nil {
			hit.Language = *language
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// SymbolHit is one definition site matching a symbol name lookup.
type SymbolHit struct {
	ContentHash    string
	Namespace      string
	Name           string
	Kind           string
	FullyQualified string
}

// FindSymbolsByName returns every definition site recorded for name,
// across every content blob it was seen in.
func (s *Store) FindSymbolsByName(ctx context.Context, name string) ([]SymbolHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_hash, namespace, name, kind, fully_qualified
		FROM symbols
		WHERE name = ?
		ORDER BY fully_qualified`, name)
	if err != nil {
		return nil, fmt.Errorf("find symbols by name: %w", err)
	}
	defer rows.Close()

	var hits []SymbolHit
	for rows.Next() {
		var hit SymbolHit
		if err := rows.Scan(&hit.ContentHash, &hit.Namespace, &hit.Name, &hit.Kind, &hit.FullyQualified); err != nil {
			return nil, fmt.Errorf("scan symbol hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// ReferenceHit is one located reference to a symbol.
type ReferenceHit struct {
	ContentHash string
	FilePath    string
	Line        int
	Column      int
	Kind        string
}

// FindReferencesByFullyQualifiedName returns every occurrence of fqn
// once for each file pointer in repository that shares the content
// blob, at any commit, for "find all references" style lookups.
func (s *Store) FindReferencesByFullyQualifiedName(ctx context.Context, repository, fqn string) ([]ReferenceHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol_references.content_hash, file_pointers.file_path, symbol_references.line, symbol_references."column", symbol_references.kind
		FROM symbol_references
		JOIN file_pointers ON file_pointers.content_hash = symbol_references.content_hash
		WHERE symbol_references.fully_qualified = ? AND file_pointers.repository = ?
		ORDER BY file_pointers.file_path, symbol_references.line`, fqn, repository)
	if err != nil {
		return nil, fmt.Errorf("find references: %w", err)
	}
	defer rows.Close()

	var hits []ReferenceHit
	for rows.Next() {
		var hit ReferenceHit
		if err := rows.Scan(&hit.ContentHash, &hit.FilePath, &hit.Line, &hit.Column, &hit.Kind); err != nil {
			return nil, fmt.Errorf("scan reference hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
