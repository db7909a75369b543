package analyzer

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	golang "github.com/tree-sitter/tree-sitter-go/bindings/go"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language describes how one grammar maps onto the structural model: which
// node kinds declare classes and functions, which kind is a call expression,
// and which field of an attribute access holds the member name.
type Language struct {
	Name       string
	Extensions []string

	classKinds  map[string]bool
	funcKinds   map[string]bool
	methodKinds map[string]bool // declarations that are methods by form (Go receivers)
	callKinds   map[string]bool
	attrKinds   map[string]bool
	wrapKinds   map[string]bool // wrappers that carry a definition (decorators, export)

	nameField     string // field holding the declared identifier
	bodyField     string // field holding the class body
	funcField     string // field holding a call's target expression
	memberField   string // field holding the member identifier of an attribute access
	receiverField string // field holding a method receiver (Go only)

	grammar *sitter.Language
}

func set(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

var languages = []*Language{
	{
		Name:        "python",
		Extensions:  []string{".py", ".pyi"},
		classKinds:  set("class_definition"),
		funcKinds:   set("function_definition"),
		methodKinds: set(),
		callKinds:   set("call"),
		attrKinds:   set("attribute"),
		wrapKinds:   set("decorated_definition"),
		nameField:   "name",
		bodyField:   "body",
		funcField:   "function",
		memberField: "attribute",
		grammar:     sitter.NewLanguage(python.Language()),
	},
	{
		Name:          "go",
		Extensions:    []string{".go"},
		classKinds:    set("type_spec"),
		funcKinds:     set("function_declaration"),
		methodKinds:   set("method_declaration"),
		callKinds:     set("call_expression"),
		attrKinds:     set("selector_expression"),
		wrapKinds:     set(),
		nameField:     "name",
		bodyField:     "body",
		funcField:     "function",
		memberField:   "field",
		receiverField: "receiver",
		grammar:       sitter.NewLanguage(golang.Language()),
	},
	{
		Name:        "javascript",
		Extensions:  []string{".js", ".jsx", ".mjs"},
		classKinds:  set("class_declaration"),
		funcKinds:   set("function_declaration", "method_definition"),
		methodKinds: set(),
		callKinds:   set("call_expression", "new_expression"),
		attrKinds:   set("member_expression"),
		wrapKinds:   set("export_statement"),
		nameField:   "name",
		bodyField:   "body",
		funcField:   "function",
		memberField: "property",
		grammar:     sitter.NewLanguage(javascript.Language()),
	},
	{
		Name:        "typescript",
		Extensions:  []string{".ts", ".tsx"},
		classKinds:  set("class_declaration"),
		funcKinds:   set("function_declaration", "method_definition"),
		methodKinds: set(),
		callKinds:   set("call_expression", "new_expression"),
		attrKinds:   set("member_expression"),
		wrapKinds:   set("export_statement"),
		nameField:   "name",
		bodyField:   "body",
		funcField:   "function",
		memberField: "property",
		grammar:     sitter.NewLanguage(typescript.LanguageTypescript()),
	},
}

// DefaultLanguage is used when a file gives no extension hint.
const DefaultLanguage = "python"

// LanguageByName returns the registered language with the given name, or nil.
func LanguageByName(name string) *Language {
	for _, l := range languages {
		if l.Name == strings.ToLower(name) {
			return l
		}
	}
	return nil
}

// LanguageForPath picks a language by file extension, falling back to the default.
func LanguageForPath(path string) *Language {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range languages {
		for _, e := range l.Extensions {
			if e == ext {
				return l
			}
		}
	}
	return LanguageByName(DefaultLanguage)
}

// SupportsPath reports whether the file extension maps to a registered
// language, without the default fallback of LanguageForPath.
func SupportsPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range languages {
		for _, e := range l.Extensions {
			if e == ext {
				return true
			}
		}
	}
	return false
}

// SupportedExtensions lists every extension the registry accepts.
func SupportedExtensions() []string {
	var exts []string
	for _, l := range languages {
		exts = append(exts, l.Extensions...)
	}
	return exts
}

// callTarget returns the expression a call node invokes, for both ordinary
// calls (field "function") and constructor-style calls (field "constructor").
func (l *Language) callTarget(n *sitter.Node) *sitter.Node {
	if t := n.ChildByFieldName(l.funcField); t != nil {
		return t
	}
	return n.ChildByFieldName("constructor")
}
