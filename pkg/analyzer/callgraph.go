package analyzer

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// resolver performs pass 2: with every definition already registered, it
// walks the same tree again and resolves call expressions to definition ids.
// Unresolvable calls produce no edge and no error; static name matching is
// inherently incomplete.
type resolver struct {
	lang  *Language
	src   []byte
	index Index
}

func (r *resolver) resolve(root *sitter.Node) {
	r.walk(root, "", "")
}

// walk carries the enclosing class name (for re-deriving definition ids) and
// the current scope: the id of the innermost registered definition whose body
// is being traversed. Calls outside any definition are skipped.
func (r *resolver) walk(n *sitter.Node, className string, scope string) {
	kind := n.Kind()

	switch {
	case r.lang.classKinds[kind]:
		name := ""
		if nameNode := n.ChildByFieldName(r.lang.nameField); nameNode != nil {
			name = clean(nameNode.Utf8Text(r.src))
		}
		if body := n.ChildByFieldName(r.lang.bodyField); body != nil {
			for i := uint(0); i < uint(body.ChildCount()); i++ {
				r.walk(body.Child(i), name, scope)
			}
		}

	case r.lang.funcKinds[kind] || r.lang.methodKinds[kind]:
		id := r.definitionID(n, className)
		next := scope
		if _, ok := r.index[id]; ok {
			next = id
		}
		// The whole declaration is traversed under the new scope, then the
		// enclosing scope is restored by the recursion unwinding.
		for i := uint(0); i < uint(n.ChildCount()); i++ {
			r.walk(n.Child(i), "", next)
		}

	case r.lang.callKinds[kind]:
		if scope != "" {
			r.recordCall(n, scope)
		}
		// Arguments may contain nested calls; the scope does not change.
		for i := uint(0); i < uint(n.ChildCount()); i++ {
			r.walk(n.Child(i), className, scope)
		}

	default:
		next := className
		if !r.lang.wrapKinds[kind] {
			next = ""
		}
		for i := uint(0); i < uint(n.ChildCount()); i++ {
			r.walk(n.Child(i), next, scope)
		}
	}
}

// definitionID re-derives the id pass 1 assigned to this declaration.
func (r *resolver) definitionID(n *sitter.Node, className string) string {
	nameNode := n.ChildByFieldName(r.lang.nameField)
	if nameNode == nil {
		return ""
	}
	name := clean(nameNode.Utf8Text(r.src))

	if r.lang.methodKinds[n.Kind()] && r.lang.receiverField != "" {
		b := &builder{lang: r.lang, src: r.src}
		className = b.receiverType(n)
	}
	if className != "" {
		return className + Separator + name
	}
	return name
}

// recordCall resolves one call expression and records the edge, if any.
//
// The callee name comes from the call target: a bare identifier is used as
// is; for an attribute access the receiver is ignored and only the member
// name is kept. Anything else (a call result, a subscript) yields no
// candidate and is skipped.
func (r *resolver) recordCall(n *sitter.Node, scope string) {
	caller, ok := r.index[scope]
	if !ok {
		return
	}

	target := r.lang.callTarget(n)
	if target == nil {
		return
	}

	var name string
	switch {
	case target.Kind() == "identifier":
		name = clean(target.Utf8Text(r.src))
	case r.lang.attrKinds[target.Kind()]:
		if member := target.ChildByFieldName(r.lang.memberField); member != nil {
			name = clean(member.Utf8Text(r.src))
		}
	}
	if name == "" {
		return
	}

	// A method caller prefers a sibling method of its own class before the
	// bare name. The order is fixed so resolution stays reproducible.
	var candidates []string
	if idx := strings.Index(scope, Separator); idx != -1 {
		candidates = append(candidates, scope[:idx]+Separator+name)
	}
	candidates = append(candidates, name)

	for _, id := range candidates {
		if callee, ok := r.index[id]; ok {
			addEdge(caller, callee)
			return
		}
	}
}
