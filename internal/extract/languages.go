package extract

// languageSpec describes, for one grammar, which node kinds introduce a
// definition (and optionally a new namespace segment), which node kinds
// bind one or more identifiers without introducing a new scope (e.g. var
// declarations), and the plain identifier leaf kind used for references.
type languageSpec struct {
	// definitionKinds maps a node kind to the field name holding its name.
	// A match emits a definition Reference and pushes name onto the
	// namespace stack for descendants.
	definitionKinds map[string]string

	// bindingKinds maps a node kind (let/var/const-like bindings) to the
	// field holding the bound pattern; every identifier leaf found under
	// that field (recursively) becomes a definition, without pushing a
	// namespace segment.
	bindingKinds map[string]string

	// declarationKinds maps a node kind to its name field for forward
	// declarations (bodies absent) - emitted as Kind=declaration.
	declarationKinds map[string]string

	// namespaceOnlyKinds introduce a namespace segment without emitting a
	// definition of their own (e.g. Go's package clause).
	namespaceOnlyKinds map[string]string

	// receiverKinds handles languages where a method's enclosing type is
	// named in a side clause rather than by lexical nesting (Go).
	// receiverField names the child holding the receiver; typeField names
	// the field holding the type expression, on the receiver itself or on
	// its first parameter.
	receiverKinds map[string]receiverSpec

	identifierKind    string
	suppressedPrefix  string // e.g. "_" for Rust lets
}

type receiverSpec struct {
	receiverField string
	typeField     string
}

func langSpecFor(lang Language) languageSpec {
	switch lang {
	case LangGo:
		return languageSpec{
			definitionKinds: map[string]string{
				"function_declaration": "name",
				"method_declaration":   "name",
				"type_spec":            "name",
			},
			bindingKinds: map[string]string{
				"short_var_declaration": "left",
				"var_spec":              "name",
				"const_spec":            "name",
			},
			namespaceOnlyKinds: map[string]string{
				"package_clause": "name",
			},
			receiverKinds: map[string]receiverSpec{
				"method_declaration": {receiverField: "receiver", typeField: "type"},
			},
			identifierKind: "identifier",
		}
	case LangPython:
		return languageSpec{
			definitionKinds: map[string]string{
				"function_definition": "name",
				"class_definition":    "name",
			},
			bindingKinds: map[string]string{
				"assignment": "left",
			},
			identifierKind: "identifier",
		}
	case LangJavaScript, LangTypeScript:
		return languageSpec{
			definitionKinds: map[string]string{
				"function_declaration": "name",
				"class_declaration":    "name",
				"method_definition":    "name",
			},
			bindingKinds: map[string]string{
				"variable_declarator": "name",
			},
			identifierKind: "identifier",
		}
	case LangJVM:
		return languageSpec{
			definitionKinds: map[string]string{
				"method_declaration":      "name",
				"class_declaration":       "name",
				"interface_declaration":   "name",
				"constructor_declaration": "name",
			},
			bindingKinds: map[string]string{
				"variable_declarator": "name",
			},
			identifierKind: "identifier",
		}
	case LangCPP, LangC:
		return languageSpec{
			definitionKinds: map[string]string{
				"function_definition":  "declarator",
				"class_specifier":      "name",
				"struct_specifier":     "name",
				"namespace_definition": "name",
			},
			declarationKinds: map[string]string{
				"declaration": "declarator",
			},
			identifierKind: "identifier",
		}
	case LangRust:
		return languageSpec{
			definitionKinds: map[string]string{
				"function_item": "name",
				"struct_item":   "name",
				"enum_item":     "name",
				"trait_item":    "name",
				"mod_item":      "name",
				"const_item":    "name",
				"static_item":   "name",
			},
			bindingKinds: map[string]string{
				"let_declaration": "pattern",
			},
			identifierKind:   "identifier",
			suppressedPrefix: "_",
		}
	case LangPHP:
		return languageSpec{
			definitionKinds: map[string]string{
				"function_definition": "name",
				"method_declaration":  "name",
				"class_declaration":   "name",
			},
			identifierKind: "name",
		}
	default:
		return languageSpec{identifierKind: "identifier"}
	}
}
