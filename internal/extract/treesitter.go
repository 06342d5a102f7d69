package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	ts_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	ts_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	ts_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	ts_js "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	ts_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ts_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	ts_ts "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// treeSitterExtractor walks a parsed syntax tree using a per-language
// languageSpec, recording a namespace-stack as it descends - the same
// shape as the single-language extractors it generalizes.
type treeSitterExtractor struct {
	lang     Language
	spec     languageSpec
	grammar  *sitter.Language
}

func newTreeSitterExtractor(lang Language) *treeSitterExtractor {
	return &treeSitterExtractor{
		lang:    lang,
		spec:    langSpecFor(lang),
		grammar: grammarFor(lang),
	}
}

func grammarFor(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return sitter.NewLanguage(ts_go.Language())
	case LangPython:
		return sitter.NewLanguage(ts_python.Language())
	case LangJavaScript:
		return sitter.NewLanguage(ts_js.Language())
	case LangTypeScript:
		return sitter.NewLanguage(ts_ts.LanguageTypescript())
	case LangRust:
		return sitter.NewLanguage(ts_rust.Language())
	case LangCPP:
		return sitter.NewLanguage(ts_cpp.Language())
	case LangPHP:
		return sitter.NewLanguage(ts_php.LanguagePHP())
	case LangJVM:
		return sitter.NewLanguage(ts_java.Language())
	default:
		return nil
	}
}

func (e *treeSitterExtractor) Extract(source []byte) Extraction {
	if e.grammar == nil {
		return Extraction{}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.grammar); err != nil {
		return Extraction{}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return Extraction{}
	}
	defer tree.Close()

	w := &walker{spec: e.spec, source: source, lang: e.lang}
	w.walk(tree.RootNode(), nil)

	return Dedupe(Extraction{Symbols: w.symbols, References: w.references})
}

type walker struct {
	spec       languageSpec
	source     []byte
	lang       Language
	symbols    []Symbol
	references []Reference
}

func (w *walker) walk(node *sitter.Node, namespaceStack []string) {
	if node == nil {
		return
	}

	kind := node.Kind()
	nextStack := namespaceStack

	switch {
	case w.spec.namespaceOnlyKinds != nil && w.spec.namespaceOnlyKinds[kind] != "":
		if name := w.fieldText(node, w.spec.namespaceOnlyKinds[kind]); name != "" {
			nextStack = append(append([]string{}, namespaceStack...), name)
		}

	case w.spec.definitionKinds != nil && w.spec.definitionKinds[kind] != "":
		field := w.spec.definitionKinds[kind]
		nameNode := node.ChildByFieldName(field)
		if nameNode != nil {
			name := w.text(nameNode)
			if name != "" {
				scope := namespaceStack
				if recv, ok := w.spec.receiverKinds[kind]; ok {
					if typeName := w.receiverType(node, recv); typeName != "" {
						scope = append(append([]string{}, namespaceStack...), typeName)
					}
				}
				ns := w.joinNamespace(scope)
				pos := nameNode.StartPosition()
				w.emitDefinition(ns, name, int(pos.Row)+1, int(pos.Column)+1)
				nextStack = append(append([]string{}, scope...), name)
			}
		}

	case w.spec.declarationKinds != nil && w.spec.declarationKinds[kind] != "":
		field := w.spec.declarationKinds[kind]
		if nameNode := firstIdentifierUnder(node, field, w.spec.identifierKind); nameNode != nil {
			name := w.text(nameNode)
			if name != "" && !isDefinitionBody(node) {
				ns := w.joinNamespace(namespaceStack)
				pos := nameNode.StartPosition()
				w.references = append(w.references, Reference{
					Name: name, Namespace: ns, Kind: KindDeclaration,
					Line: int(pos.Row) + 1, Column: int(pos.Column) + 1,
				})
			}
		}

	case w.spec.bindingKinds != nil && w.spec.bindingKinds[kind] != "":
		field := w.spec.bindingKinds[kind]
		target := node.ChildByFieldName(field)
		if target == nil {
			target = node
		}
		ns := w.joinNamespace(namespaceStack)
		for _, idNode := range collectIdentifiers(target, w.spec.identifierKind) {
			name := w.text(idNode)
			if name == "" || w.suppressed(name) {
				continue
			}
			pos := idNode.StartPosition()
			w.emitDefinition(ns, name, int(pos.Row)+1, int(pos.Column)+1)
		}

	case kind == w.spec.identifierKind:
		if !isPartOfDefinitionAncestor(node, w.spec) {
			name := w.text(node)
			if name != "" && !w.suppressed(name) {
				pos := node.StartPosition()
				w.references = append(w.references, Reference{
					Name: name, Namespace: w.joinNamespace(namespaceStack), Kind: KindReference,
					Line: int(pos.Row) + 1, Column: int(pos.Column) + 1,
				})
			}
		}
	}

	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		w.walk(node.Child(uint(i)), nextStack)
	}
}

func (w *walker) emitDefinition(namespace, name string, line, column int) {
	w.references = append(w.references, Reference{
		Name: name, Namespace: namespace, Kind: KindDefinition, Line: line, Column: column,
	})
	w.symbols = append(w.symbols, Symbol{
		Namespace: namespace, Name: name, Kind: KindDefinition,
		FullyQualified: FullyQualify(w.lang, namespace, name),
	})
}

func (w *walker) suppressed(name string) bool {
	return w.spec.suppressedPrefix != "" && strings.HasPrefix(name, w.spec.suppressedPrefix)
}

func (w *walker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	t, err := node.Utf8Text(w.source)
	if err != nil {
		return ""
	}
	return t
}

func (w *walker) fieldText(node *sitter.Node, field string) string {
	return w.text(node.ChildByFieldName(field))
}

// receiverType returns the receiver's type name without a leading "*",
// or "" when node has none. Go's receiver is a parameter_list, so the
// type field is looked up on its first parameter.
func (w *walker) receiverType(node *sitter.Node, recv receiverSpec) string {
	receiver := node.ChildByFieldName(recv.receiverField)
	if receiver == nil {
		return ""
	}
	typeNode := receiver.ChildByFieldName(recv.typeField)
	if typeNode == nil && receiver.NamedChildCount() > 0 {
		typeNode = receiver.NamedChild(0).ChildByFieldName(recv.typeField)
	}
	if typeNode == nil {
		return ""
	}
	return strings.TrimPrefix(w.text(typeNode), "*")
}

func (w *walker) joinNamespace(stack []string) string {
	return strings.Join(stack, namespaceSeparator(w.lang))
}

// collectIdentifiers walks target collecting every leaf node of kind
// identKind, recursing through list/tuple/pattern wrapper nodes.
func collectIdentifiers(node *sitter.Node, identKind string) []*sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == identKind {
		return []*sitter.Node{node}
	}

	var out []*sitter.Node
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(uint(i))
		if child == nil || !child.IsNamed() {
			continue
		}
		out = append(out, collectIdentifiers(child, identKind)...)
	}
	return out
}

func firstIdentifierUnder(node *sitter.Node, field, identKind string) *sitter.Node {
	target := node.ChildByFieldName(field)
	if target == nil {
		target = node
	}
	ids := collectIdentifiers(target, identKind)
	if len(ids) == 0 {
		return nil
	}
	return ids[0]
}

// isDefinitionBody reports whether a "declaration"-kind node actually has
// a function body attached, meaning it's a definition rather than a
// forward declaration - used by the C/C++ declarationKinds path.
func isDefinitionBody(node *sitter.Node) bool {
	return node.ChildByFieldName("body") != nil
}

// isPartOfDefinitionAncestor reports whether node is the bound name (or
// part of the bound pattern) of some enclosing binding/definition node,
// as opposed to merely appearing somewhere inside that node's body.
// Bindings (bindingKinds/declarationKinds) don't introduce a new scope,
// so the walk keeps climbing past them looking further up for the name
// itself; a definitionKinds/namespaceOnlyKinds ancestor does introduce a
// scope, so it's checked once and the walk stops there regardless of the
// outcome - everything below it that isn't the name itself is body, not
// binding.
func isPartOfDefinitionAncestor(node *sitter.Node, spec languageSpec) bool {
	current := node.Parent()
	for current != nil {
		kind := current.Kind()

		if field, ok := spec.bindingKinds[kind]; ok && fieldCovers(current, field, node) {
			return true
		}
		if field, ok := spec.declarationKinds[kind]; ok && fieldCovers(current, field, node) {
			return true
		}
		if field, ok := spec.definitionKinds[kind]; ok {
			return fieldCovers(current, field, node)
		}
		if field, ok := spec.namespaceOnlyKinds[kind]; ok {
			return fieldCovers(current, field, node)
		}

		current = current.Parent()
	}
	return false
}

// fieldCovers reports whether node's source range falls within the named
// field of container (or container itself, when the field is absent).
func fieldCovers(container *sitter.Node, field string, node *sitter.Node) bool {
	target := container.ChildByFieldName(field)
	if target == nil {
		target = container
	}
	return node.StartByte() >= target.StartByte() && node.EndByte() <= target.EndByte()
}
