package analyzer

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// builder performs pass 1: it walks the parsed tree and registers every
// class, top-level function and method as a Definition. Lexical context is
// carried down the recursion instead of being attached to syntax nodes, so
// nothing is ever mutated onto the shared tree.
type builder struct {
	lang  *Language
	src   []byte
	tree  *Tree
	index Index
}

func (b *builder) build(root *sitter.Node) (*Tree, Index) {
	b.tree = NewTree()
	b.index = Index{}
	b.walk(root, nil, nil)
	return b.tree, b.index
}

// walk visits n with its syntactic parent and the class whose body directly
// encloses it (nil at module level). Only one nesting level is consulted:
// descending into a function body clears the class context, so a function
// nested inside a method registers as a module-level function.
func (b *builder) walk(n *sitter.Node, parent *sitter.Node, class *Definition) {
	kind := n.Kind()

	switch {
	case b.lang.classKinds[kind]:
		def := b.defineClass(n, parent, class)
		if def == nil {
			return
		}
		if body := n.ChildByFieldName(b.lang.bodyField); body != nil {
			for i := uint(0); i < uint(body.ChildCount()); i++ {
				b.walk(body.Child(i), body, def)
			}
		}

	case b.lang.funcKinds[kind] || b.lang.methodKinds[kind]:
		b.defineFunc(n, parent, class)
		if body := n.ChildByFieldName(b.lang.bodyField); body != nil {
			for i := uint(0); i < uint(body.ChildCount()); i++ {
				b.walk(body.Child(i), body, nil)
			}
		}

	default:
		// Decorator/export wrappers keep the class context; anything else
		// (conditionals, loops) breaks the direct-nesting relationship.
		next := class
		if !b.lang.wrapKinds[kind] {
			next = nil
		}
		for i := uint(0); i < uint(n.ChildCount()); i++ {
			b.walk(n.Child(i), n, next)
		}
	}
}

// defineClass registers a class definition. First-seen wins on id collisions:
// a repeated class name returns the already-registered definition so later
// methods still attach to it; a non-class collision is ignored outright.
func (b *builder) defineClass(n *sitter.Node, parent *sitter.Node, class *Definition) *Definition {
	nameNode := n.ChildByFieldName(b.lang.nameField)
	if nameNode == nil {
		return nil
	}
	name := clean(nameNode.Utf8Text(b.src))
	if name == "" {
		return nil
	}

	if existing, ok := b.index[name]; ok {
		if existing.Kind == KindClass {
			return existing
		}
		return nil
	}

	span := b.spanNode(n, parent)
	def := &Definition{
		ID:        name,
		Name:      name,
		Kind:      KindClass,
		Code:      span.Utf8Text(b.src),
		StartLine: lineFromOffset(b.src, span.StartByte()),
		EndLine:   lineFromOffset(b.src, span.EndByte()),
	}

	if class != nil {
		class.Children = append(class.Children, def)
	} else {
		b.tree.Children = append(b.tree.Children, def)
	}
	b.index[name] = def
	return def
}

// defineFunc registers a function or method definition. A declaration is a
// method when its direct lexical parent is a class body, or, for receiver
// languages, when the declaration form itself names a receiver type.
func (b *builder) defineFunc(n *sitter.Node, parent *sitter.Node, class *Definition) {
	nameNode := n.ChildByFieldName(b.lang.nameField)
	if nameNode == nil {
		return
	}
	name := clean(nameNode.Utf8Text(b.src))
	if name == "" {
		return
	}

	className := ""
	if b.lang.methodKinds[n.Kind()] && b.lang.receiverField != "" {
		className = b.receiverType(n)
	} else if class != nil {
		className = class.Name
	}

	kind := KindFunction
	id := name
	if className != "" {
		kind = KindMethod
		id = className + Separator + name
	}

	if _, ok := b.index[id]; ok {
		return
	}

	span := b.spanNode(n, parent)
	def := &Definition{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Code:      span.Utf8Text(b.src),
		StartLine: lineFromOffset(b.src, span.StartByte()),
		EndLine:   lineFromOffset(b.src, span.EndByte()),
	}

	switch {
	case class != nil:
		class.Children = append(class.Children, def)
	case kind == KindMethod:
		// Receiver-style method: attach to its type's definition when the
		// type is declared in this file, otherwise to the module root.
		if owner, ok := b.index[className]; ok && owner.Kind == KindClass {
			owner.Children = append(owner.Children, def)
		} else {
			b.tree.Children = append(b.tree.Children, def)
		}
	default:
		b.tree.Children = append(b.tree.Children, def)
	}
	b.index[id] = def
}

// spanNode widens a definition to its wrapper node so decorators count as
// part of the definition's code span.
func (b *builder) spanNode(n *sitter.Node, parent *sitter.Node) *sitter.Node {
	if parent != nil && b.lang.wrapKinds[parent.Kind()] {
		return parent
	}
	return n
}

// receiverType extracts the bare receiver type name of a method declaration.
func (b *builder) receiverType(n *sitter.Node) string {
	recv := n.ChildByFieldName(b.lang.receiverField)
	if recv == nil {
		return ""
	}
	for i := uint(0); i < uint(recv.ChildCount()); i++ {
		child := recv.Child(i)
		if child.Kind() != "parameter_declaration" {
			continue
		}
		if typeNode := child.ChildByFieldName("type"); typeNode != nil {
			t := clean(typeNode.Utf8Text(b.src))
			t = strings.TrimPrefix(t, "*")
			if idx := strings.Index(t, "["); idx != -1 {
				t = t[:idx]
			}
			return t
		}
	}
	return ""
}
