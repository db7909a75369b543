// Dev tool: dump the raw tree-sitter AST for a source file, with node kinds
// and field names. Useful when adding a language to the analyzer's kind tables.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	golang "github.com/tree-sitter/tree-sitter-go/bindings/go"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

func main() {
	code := []byte(`
class Greeter:
    def greet(self):
        return helper()

def helper():
    return Greeter()
`)
	grammar := python.Language()

	if len(os.Args) > 1 {
		path := os.Args[1]
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		code = data
		grammar = grammarForPath(path)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitter.NewLanguage(grammar)); err != nil {
		log.Fatalf("set language: %v", err)
	}

	tree := parser.Parse(code, nil)
	defer tree.Close()

	var walk func(n *sitter.Node, field string, depth int)
	walk = func(n *sitter.Node, field string, depth int) {
		indent := ""
		for i := 0; i < depth; i++ {
			indent += "  "
		}
		if field != "" {
			fmt.Printf("%s%s: %s [%d-%d]\n", indent, field, n.Kind(), n.StartByte(), n.EndByte())
		} else {
			fmt.Printf("%s%s [%d-%d]\n", indent, n.Kind(), n.StartByte(), n.EndByte())
		}

		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), n.FieldNameForChild(uint32(i)), depth+1)
		}
	}
	walk(tree.RootNode(), "", 0)
}

func grammarForPath(path string) unsafe.Pointer {
	switch {
	case strings.HasSuffix(path, ".go"):
		return golang.Language()
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".jsx"):
		return javascript.Language()
	case strings.HasSuffix(path, ".ts"), strings.HasSuffix(path, ".tsx"):
		return typescript.LanguageTypescript()
	default:
		return python.Language()
	}
}
