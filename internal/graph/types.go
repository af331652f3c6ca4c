// Package graph models foreign-key dependencies between migrated tables.
// Edges run from the referenced (parent) table to the referencing (child)
// table, so a topological order lists parents first.
package graph

import "sort"

// Edge represents a dependency relationship between tables.
type Edge struct {
	From string // Referenced table
	To   string // Referencing table
}

// EdgeMeta describes the foreign key behind an edge.
type EdgeMeta struct {
	LocalColumns      []string
	ReferencedColumns []string
}

// Graph is the foreign-key dependency structure of a schema.
type Graph struct {
	Nodes          map[string]bool
	Children       map[string][]string // table -> tables referencing it
	Parents        map[string][]string // table -> tables it references
	SelfReferences []string            // tables with a foreign key to themselves
	Missing        []Edge              // references to tables outside the graph
	edgeMetadata   map[Edge][]EdgeMeta
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:        make(map[string]bool),
		Children:     make(map[string][]string),
		Parents:      make(map[string][]string),
		edgeMetadata: make(map[Edge][]EdgeMeta),
	}
}

// AddNode adds a table to the graph.
func (g *Graph) AddNode(name string) {
	g.Nodes[name] = true
}

// AddEdge adds a parent -> child relationship. Repeated edges between the
// same pair (multi-column or duplicate foreign keys) are stored once.
func (g *Graph) AddEdge(parent, child string) {
	for _, c := range g.Children[parent] {
		if c == child {
			return
		}
	}
	g.Children[parent] = append(g.Children[parent], child)
	g.Parents[child] = append(g.Parents[child], parent)
}

// AddEdgeWithMeta adds an edge and records the foreign key columns behind it.
func (g *Graph) AddEdgeWithMeta(parent, child string, meta EdgeMeta) {
	g.AddEdge(parent, child)
	edge := Edge{From: parent, To: child}
	g.edgeMetadata[edge] = append(g.edgeMetadata[edge], meta)
}

// GetChildren returns all direct children of a table.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns all direct parents of a table.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// GetEdgeMeta returns the foreign keys behind an edge.
func (g *Graph) GetEdgeMeta(parent, child string) []EdgeMeta {
	return g.edgeMetadata[Edge{From: parent, To: child}]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	return g.Nodes[name]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.Children {
		count += len(children)
	}
	return count
}

// AllNodes returns all table names, sorted.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// AllEdges returns all edges sorted by parent then child.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for parent, children := range g.Children {
		for _, child := range children {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// InDegree returns the number of incoming edges (parents) for a node.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// Components returns the weakly connected components of the graph: tables
// linked by a foreign key in either direction share a component. Tables
// inside a component are sorted, and components are ordered by their first
// table.
func (g *Graph) Components() [][]string {
	seen := make(map[string]bool, len(g.Nodes))
	var components [][]string

	for _, start := range g.AllNodes() {
		if seen[start] {
			continue
		}
		seen[start] = true
		component := []string{start}
		queue := []string{start}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			neighbours := append(append([]string{}, g.Children[node]...), g.Parents[node]...)
			for _, n := range neighbours {
				if !seen[n] {
					seen[n] = true
					component = append(component, n)
					queue = append(queue, n)
				}
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}
	return components
}
