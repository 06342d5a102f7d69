package extract

import (
	"bytes"
	"regexp"
)

// heuristicExtractor is a regexp-based scanner used for languages that
// have no available tree-sitter grammar binding in this module's
// dependency set (objc, swift, lua, glsl, jvm's Kotlin variant, proto,
// nix). It finds definition sites by line-anchored pattern, then runs a
// second occurrence-scan pass over every defined name to emit reference
// sites elsewhere in the file. It does not attempt scope nesting, so
// every definition and reference is file-level (empty Namespace).
type heuristicExtractor struct {
	lang     Language
	patterns []*regexp.Regexp
}

// glslBuiltinTypes are GLSL's scalar/vector/matrix/sampler/image type
// keywords. Occurrences of these are suppressed from reference scanning;
// user-defined struct types still emit.
var glslBuiltinTypes = map[string]bool{
	"void": true, "float": true, "int": true, "bool": true, "uint": true,
	"vec2": true, "vec3": true, "vec4": true,
	"ivec2": true, "ivec3": true, "ivec4": true,
	"bvec2": true, "bvec3": true, "bvec4": true,
	"mat2": true, "mat3": true, "mat4": true,
	"sampler2D": true, "sampler3D": true, "samplerCube": true,
	"image2D": true, "image3D": true, "imageCube": true,
}

func newHeuristicExtractor(lang Language) *heuristicExtractor {
	return &heuristicExtractor{lang: lang, patterns: patternsFor(lang)}
}

func patternsFor(lang Language) []*regexp.Regexp {
	switch lang {
	case LangSwift:
		return compileAll(
			`\bfunc\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bclass\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bstruct\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\benum\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bprotocol\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\b(?:let|var)\s+([A-Za-z_][A-Za-z0-9_]*)`,
		)
	case LangObjC:
		return compileAll(
			`@interface\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`@implementation\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`@protocol\s+([A-Za-z_][A-Za-z0-9_]*)`,
		)
	case LangLua:
		return compileAll(
			`\bfunction\s+([A-Za-z_][A-Za-z0-9_.:]*)`,
			`\blocal\s+(?:function\s+)?([A-Za-z_][A-Za-z0-9_]*)`,
		)
	case LangGLSL:
		return compileAll(
			`\b(?:void|float|int|bool|vec2|vec3|vec4|mat2|mat3|mat4)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`,
			`\buniform\s+\w+\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bstruct\s+([A-Za-z_][A-Za-z0-9_]*)`,
		)
	case LangJVM: // Kotlin source files (.kt); .java is handled by the tree-sitter path
		return compileAll(
			`\bfun\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bclass\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bobject\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\binterface\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bval\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bvar\s+([A-Za-z_][A-Za-z0-9_]*)`,
		)
	case LangProto:
		return compileAll(
			`\bmessage\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\benum\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\bservice\s+([A-Za-z_][A-Za-z0-9_]*)`,
			`\brpc\s+([A-Za-z_][A-Za-z0-9_]*)`,
		)
	case LangNix:
		return compileAll(
			`\b([A-Za-z_][A-Za-z0-9_'-]*)\s*=\s*[^=]`,
		)
	default:
		return nil
	}
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

// defSite locates one definition/declaration occurrence, so the
// reference-occurrence pass below can skip over it.
type defSite struct{ line, column int }

func (e *heuristicExtractor) Extract(source []byte) Extraction {
	lines := splitLines(source)

	var refs []Reference
	sites := make(map[string][]defSite)

	for i, line := range lines {
		for _, pat := range e.patterns {
			match := pat.FindSubmatchIndex(line)
			if match == nil {
				continue
			}
			name := string(line[match[2]:match[3]])
			if name == "" {
				continue
			}
			kind := KindDefinition
			if e.lang == LangGLSL && isForwardDeclarationLine(line) {
				kind = KindDeclaration
			}
			column := match[2] + 1
			refs = append(refs, Reference{Name: name, Kind: kind, Line: i + 1, Column: column})
			sites[name] = append(sites[name], defSite{line: i + 1, column: column})
		}
	}

	for name, occurrences := range sites {
		if e.lang == LangGLSL && glslBuiltinTypes[name] {
			continue
		}
		occPattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		for i, line := range lines {
			for _, loc := range occPattern.FindAllIndex(line, -1) {
				column := loc[0] + 1
				if atDefSite(occurrences, i+1, column) {
					continue
				}
				refs = append(refs, Reference{Name: name, Kind: KindReference, Line: i + 1, Column: column})
			}
		}
	}

	symbols := make([]Symbol, 0, len(refs))
	for _, r := range refs {
		if r.Kind != KindDefinition {
			continue
		}
		symbols = append(symbols, Symbol{
			Name: r.Name, Namespace: r.Namespace, Kind: KindDefinition,
			FullyQualified: FullyQualify(e.lang, r.Namespace, r.Name),
		})
	}

	return Dedupe(Extraction{Symbols: symbols, References: refs})
}

func atDefSite(sites []defSite, line, column int) bool {
	for _, s := range sites {
		if s.line == line && s.column == column {
			return true
		}
	}
	return false
}

// isForwardDeclarationLine reports whether a GLSL function signature ends
// its statement with ';' rather than opening a '{' body - the one
// declaration/definition split these regexp-scanned languages draw.
func isForwardDeclarationLine(line []byte) bool {
	trimmed := bytes.TrimRight(line, " \t\r")
	return len(trimmed) > 0 && trimmed[len(trimmed)-1] == ';'
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
