// Package languages registers the tree-sitter grammars vybe chunks with.
package languages

import (
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"vybe/internal/chunker"
)

const goQuery = `
	(function_declaration name: (identifier) @name) @chunk
	(method_declaration name: (field_identifier) @name) @chunk
	(type_declaration (type_spec name: (type_identifier) @name)) @chunk
`

const javascriptQuery = `
	(function_declaration name: (identifier) @name) @chunk
	(class_declaration name: (identifier) @name) @chunk
	(export_statement (function_declaration name: (identifier) @name)) @chunk
	(export_statement (class_declaration name: (identifier) @name)) @chunk
	(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @chunk
`

const typescriptQuery = `
	(function_declaration name: (identifier) @name) @chunk
	(class_declaration name: (type_identifier) @name) @chunk
	(export_statement (function_declaration name: (identifier) @name)) @chunk
	(export_statement (class_declaration name: (type_identifier) @name)) @chunk
	(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @chunk
	(interface_declaration name: (type_identifier) @name) @chunk
	(type_alias_declaration name: (type_identifier) @name) @chunk
`

const pythonQuery = `
	(function_definition name: (identifier) @name) @chunk
	(class_definition name: (identifier) @name) @chunk
	(decorated_definition definition: (function_definition name: (identifier) @name)) @chunk
	(decorated_definition definition: (class_definition name: (identifier) @name)) @chunk
`

func RegisterGo(r *chunker.Registry) {
	r.Register("go", &chunker.LanguageSpec{
		Language:   golang.GetLanguage(),
		Query:      goQuery,
		Extensions: []string{"go"},
	})
}

func RegisterJavaScript(r *chunker.Registry) {
	r.Register("javascript", &chunker.LanguageSpec{
		Language:   javascript.GetLanguage(),
		Query:      javascriptQuery,
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
	})
}

// RegisterTypeScript registers both the TypeScript and TSX grammars; JSX
// syntax does not parse with the plain TypeScript grammar.
func RegisterTypeScript(r *chunker.Registry) {
	r.Register("typescript", &chunker.LanguageSpec{
		Language:   typescript.GetLanguage(),
		Query:      typescriptQuery,
		Extensions: []string{"ts", "mts", "cts"},
	})
	r.Register("typescriptreact", &chunker.LanguageSpec{
		Language:   tsx.GetLanguage(),
		Query:      typescriptQuery,
		Extensions: []string{"tsx"},
	})
}

func RegisterPython(r *chunker.Registry) {
	r.Register("python", &chunker.LanguageSpec{
		Language:   python.GetLanguage(),
		Query:      pythonQuery,
		Extensions: []string{"py", "pyi"},
	})
}

// Default returns a registry with every supported grammar.
func Default() *chunker.Registry {
	r := chunker.NewRegistry()
	RegisterGo(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterPython(r)
	return r
}
