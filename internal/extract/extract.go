// Package extract parses source files into symbol and reference records:
// named definitions, forward declarations, and identifier occurrences,
// each located within a namespace derived from the file's lexical scopes.
package extract

import (
	"path"
	"strings"
)

// ReferenceKind classifies one occurrence of a name.
type ReferenceKind string

const (
	KindDefinition  ReferenceKind = "definition"
	KindDeclaration ReferenceKind = "declaration"
	KindReference   ReferenceKind = "reference"
)

// Reference is one located name occurrence, definition, or forward
// declaration found while walking a file's syntax tree.
type Reference struct {
	Name      string
	Namespace string // empty means file-level / no enclosing scope
	Kind      ReferenceKind
	Line      int // 1-based
	Column    int // 1-based
}

// Symbol is a deduplicated definition site: a unique (namespace, name, kind)
// within a blob, carrying the fully-qualified name clients look up.
type Symbol struct {
	Namespace      string
	Name           string
	Kind           ReferenceKind
	FullyQualified string
}

// Extraction is the full result of extracting one file's contents.
type Extraction struct {
	Symbols    []Symbol
	References []Reference
}

// Language identifies the grammar/heuristic used for extraction. It follows
// the extension-inference table, not any one grammar package, so .java and
// .kt both map to "jvm" even though they're parsed differently.
type Language string

const (
	LangRust       Language = "rust"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangGo         Language = "go"
	LangJVM        Language = "jvm"
	LangC          Language = "c"
	LangObjC       Language = "objc"
	LangCPP        Language = "cpp"
	LangSwift      Language = "swift"
	LangProto      Language = "proto"
	LangNix        Language = "nix"
	LangPHP        Language = "php"
	LangLua        Language = "lua"
	LangGLSL       Language = "glsl"
)

var extensionLanguage = map[string]Language{
	".rs":    LangRust,
	".ts":    LangTypeScript,
	".tsx":   LangTypeScript,
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".py":    LangPython,
	".go":    LangGo,
	".java":  LangJVM,
	".kt":    LangJVM,
	".c":     LangC,
	".m":     LangObjC,
	".mm":    LangObjC,
	".cc":    LangCPP,
	".cpp":   LangCPP,
	".cxx":   LangCPP,
	".hh":    LangCPP,
	".hpp":   LangCPP,
	".h":     LangCPP,
	".inl":   LangCPP,
	".swift": LangSwift,
	".proto": LangProto,
	".nix":   LangNix,
	".php":   LangPHP,
	".lua":   LangLua,
	".glsl":  LangGLSL,
}

// InferLanguage maps a file path's extension to a Language. The second
// return value is false for unknown extensions, which still produce a
// blob but skip symbol extraction entirely.
func InferLanguage(filePath string) (Language, bool) {
	ext := strings.ToLower(path.Ext(filePath))
	lang, ok := extensionLanguage[ext]
	return lang, ok
}

// namespaceSeparator returns the separator used to join namespace-stack
// segments for a language, per the per-language joining convention.
func namespaceSeparator(lang Language) string {
	switch lang {
	case LangRust, LangC, LangCPP:
		return "::"
	case LangPHP:
		return "\\"
	case LangLua:
		return ":"
	default:
		return "."
	}
}

// Extractor parses one file's source into symbols and references.
type Extractor interface {
	Extract(source []byte) Extraction
}

// Registry resolves a Language (or, for languages sharing a single
// Language code over grammar-incompatible dialects, a file extension) to
// its Extractor. A nil entry means the language is recognized but has no
// extraction support.
type Registry struct {
	extractors map[Language]Extractor
	byExt      map[string]Extractor // overrides, keyed by lowercase extension
}

// NewRegistry builds the default registry: tree-sitter-backed extractors
// for languages with an available grammar binding, falling through to
// lighter heuristic scanners for the rest.
//
// "jvm" covers both Java and Kotlin, but only Java has a tree-sitter
// grammar in the dependency set; Kotlin falls back to the heuristic
// scanner. That split can't be expressed by a single Language key, so
// ".java" is registered as a per-extension override.
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make(map[Language]Extractor),
		byExt:      make(map[string]Extractor),
	}

	r.extractors[LangGo] = newTreeSitterExtractor(LangGo)
	r.extractors[LangPython] = newTreeSitterExtractor(LangPython)
	r.extractors[LangJavaScript] = newTreeSitterExtractor(LangJavaScript)
	r.extractors[LangTypeScript] = newTreeSitterExtractor(LangTypeScript)
	r.extractors[LangRust] = newTreeSitterExtractor(LangRust)
	r.extractors[LangCPP] = newTreeSitterExtractor(LangCPP)
	r.extractors[LangPHP] = newTreeSitterExtractor(LangPHP)
	r.extractors[LangC] = newTreeSitterExtractor(LangCPP) // C shares the C++ grammar's superset well enough for declarations/definitions

	r.extractors[LangJVM] = newHeuristicExtractor(LangJVM) // covers .kt; .java is overridden below
	r.extractors[LangObjC] = newHeuristicExtractor(LangObjC)
	r.extractors[LangSwift] = newHeuristicExtractor(LangSwift)
	r.extractors[LangLua] = newHeuristicExtractor(LangLua)
	r.extractors[LangGLSL] = newHeuristicExtractor(LangGLSL)
	r.extractors[LangProto] = newHeuristicExtractor(LangProto)
	r.extractors[LangNix] = newHeuristicExtractor(LangNix)

	r.byExt[".java"] = newTreeSitterExtractor(LangJVM)

	return r
}

// Extractor returns the Extractor registered for lang, or false if no
// support is registered.
func (r *Registry) Extractor(lang Language) (Extractor, bool) {
	e, ok := r.extractors[lang]
	return e, ok
}

// ExtractorForPath resolves the Extractor for a file, preferring a
// per-extension override over the language-level default.
func (r *Registry) ExtractorForPath(lang Language, relPath string) (Extractor, bool) {
	ext := strings.ToLower(path.Ext(relPath))
	if e, ok := r.byExt[ext]; ok {
		return e, true
	}
	return r.Extractor(lang)
}

// PathNamespaceHint derives a namespace hint from a file's repo-relative
// path, used when the extractor itself reports no enclosing namespace.
// Rust flattens mod.rs/lib.rs into the parent directory's path; other
// languages join directory components (minus a leading "src/") with the
// file stem.
func PathNamespaceHint(lang Language, relPath string) string {
	relPath = strings.TrimPrefix(relPath, "/")
	dir, file := path.Split(relPath)
	dir = strings.TrimSuffix(dir, "/")
	stem := strings.TrimSuffix(file, path.Ext(file))

	segments := splitNonEmpty(dir, "/")
	if len(segments) > 0 && segments[0] == "src" {
		segments = segments[1:]
	}

	sep := namespaceSeparator(lang)

	if lang == LangRust {
		switch stem {
		case "lib", "mod":
			// lib.rs/mod.rs represent their own directory's module.
		default:
			segments = append(segments, stem)
		}
		if len(segments) == 0 {
			return ""
		}
		return strings.Join(segments, sep)
	}

	segments = append(segments, stem)
	return strings.Join(segments, sep)
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FullyQualify joins a namespace and name into the dotted/scoped form
// stored as Symbol.FullyQualified, using the language's separator.
func FullyQualify(lang Language, namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + namespaceSeparator(lang) + name
}

// Dedupe collapses (namespace, name, kind, line, column) duplicate
// references and (namespace, name, kind) duplicate symbols found within
// the same extraction, matching the walk-level deduplication rule.
func Dedupe(e Extraction) Extraction {
	seenRefs := make(map[[5]string]struct{}, len(e.References))
	refs := make([]Reference, 0, len(e.References))
	for _, r := range e.References {
		key := [5]string{r.Namespace, r.Name, string(r.Kind), itoa(r.Line), itoa(r.Column)}
		if _, ok := seenRefs[key]; ok {
			continue
		}
		seenRefs[key] = struct{}{}
		refs = append(refs, r)
	}

	seenSyms := make(map[[3]string]struct{}, len(e.Symbols))
	syms := make([]Symbol, 0, len(e.Symbols))
	for _, s := range e.Symbols {
		key := [3]string{s.Namespace, s.Name, string(s.Kind)}
		if _, ok := seenSyms[key]; ok {
			continue
		}
		seenSyms[key] = struct{}{}
		syms = append(syms, s)
	}

	return Extraction{Symbols: syms, References: refs}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
