package analyzer

// Kind is the closed set of definition kinds.
type Kind string

const (
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
)

// Separator joins a class name and a method name into a method id.
const Separator = "."

// Definition is a class, top-level function, or method extracted from source,
// with its code span and the call/instantiation edges resolved against it.
type Definition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      Kind   `json:"type"`
	Code      string `json:"code,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`

	// Children holds methods for a class; empty for functions and methods.
	Children []*Definition `json:"children,omitempty"`

	// Edge sets are insertion-ordered and duplicate-free. Every entry in
	// Calls has a matching entry in the target's CalledBy, and likewise for
	// Instantiates/InstantiatedBy.
	Calls          []string `json:"calls,omitempty"`
	CalledBy       []string `json:"called_by,omitempty"`
	Instantiates   []string `json:"instantiates,omitempty"`
	InstantiatedBy []string `json:"instantiated_by,omitempty"`
}

// Tree is the module root owning every top-level class and function.
type Tree struct {
	Name     string        `json:"name"`
	ID       string        `json:"id"`
	Children []*Definition `json:"children"`
	Error    string        `json:"error,omitempty"`
}

// Index maps definition ids to their nodes. Shared by both analysis passes.
type Index map[string]*Definition

// NewTree returns an empty module root.
func NewTree() *Tree {
	return &Tree{Name: "root", ID: "root", Children: []*Definition{}}
}

// ErrorTree is what analysis failures serialize to: an empty root carrying
// only an error message. Callers check the error field, not a status code.
func ErrorTree(msg string) *Tree {
	t := NewTree()
	t.Error = msg
	return t
}

// appendUnique keeps an edge set insertion-ordered and free of duplicates.
func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

// addEdge records a directed edge between caller and callee, writing both
// directions together. Instantiation edges are used when the callee is a
// class; call edges otherwise.
func addEdge(caller, callee *Definition) {
	if callee.Kind == KindClass {
		caller.Instantiates = appendUnique(caller.Instantiates, callee.ID)
		callee.InstantiatedBy = appendUnique(callee.InstantiatedBy, caller.ID)
		return
	}
	caller.Calls = appendUnique(caller.Calls, callee.ID)
	callee.CalledBy = appendUnique(callee.CalledBy, caller.ID)
}
