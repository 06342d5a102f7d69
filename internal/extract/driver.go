package extract

// ExtractFile runs the registered extractor (if any) for relPath's
// inferred language and applies the path-derived namespace hint to any
// reference/symbol that the extractor left with no enclosing namespace -
// extractor-provided namespaces always take precedence.
func ExtractFile(registry *Registry, relPath string, source []byte) Extraction {
	lang, ok := InferLanguage(relPath)
	if !ok {
		return Extraction{}
	}

	extractor, ok := registry.ExtractorForPath(lang, relPath)
	if !ok {
		return Extraction{}
	}

	extraction := extractor.Extract(source)
	hint := PathNamespaceHint(lang, relPath)
	if hint == "" {
		return extraction
	}

	for i := range extraction.References {
		if extraction.References[i].Namespace == "" {
			extraction.References[i].Namespace = hint
		}
	}
	for i := range extraction.Symbols {
		if extraction.Symbols[i].Namespace == "" {
			extraction.Symbols[i].Namespace = hint
			extraction.Symbols[i].FullyQualified = FullyQualify(lang, hint, extraction.Symbols[i].Name)
		}
	}

	return extraction
}
