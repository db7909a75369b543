// Package export converts a structure tree into a D3 force-directed graph.
package export

import (
	"encoding/json"
	"os"

	"github.com/duynguyendang/pyscope/pkg/analyzer"
)

// D3Node represents a node in the D3 force-directed graph.
type D3Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Group    string `json:"group,omitempty"`
	Code     string `json:"code,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

// D3Link represents a directed edge in the graph.
type D3Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// D3Graph is the full payload consumed by the frontend.
type D3Graph struct {
	Nodes []D3Node `json:"nodes"`
	Links []D3Link `json:"links"`
}

// Relations emitted for the two edge kinds.
const (
	RelationCalls        = "calls"
	RelationInstantiates = "instantiates"
)

// FromTree flattens the structure tree into nodes and the forward edge sets
// into links. Only Calls/Instantiates are walked; the inverse sets mirror
// them by construction and would only duplicate every link.
func FromTree(tree *analyzer.Tree, index analyzer.Index) *D3Graph {
	g := &D3Graph{Nodes: []D3Node{}, Links: []D3Link{}}
	if tree == nil {
		return g
	}

	var addNode func(def *analyzer.Definition, parentID string)
	addNode = func(def *analyzer.Definition, parentID string) {
		g.Nodes = append(g.Nodes, D3Node{
			ID:       def.ID,
			Name:     def.Name,
			Kind:     string(def.Kind),
			Group:    string(def.Kind),
			Code:     def.Code,
			ParentID: parentID,
		})
		for _, child := range def.Children {
			addNode(child, def.ID)
		}
	}
	for _, def := range tree.Children {
		addNode(def, "")
	}

	for _, node := range g.Nodes {
		def, ok := index[node.ID]
		if !ok {
			continue
		}
		for _, target := range def.Calls {
			g.Links = append(g.Links, D3Link{Source: def.ID, Target: target, Relation: RelationCalls})
		}
		for _, target := range def.Instantiates {
			g.Links = append(g.Links, D3Link{Source: def.ID, Target: target, Relation: RelationInstantiates})
		}
	}
	return g
}

// SaveD3Graph writes the graph to a JSON file.
func SaveD3Graph(graph *D3Graph, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(graph)
}
