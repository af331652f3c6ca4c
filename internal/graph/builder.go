package graph

import (
	"github.com/dbsmedya/litemigrate/internal/schema"
)

// Build creates the dependency graph of a set of table definitions.
// Self-references are kept out of the edge set and listed in SelfReferences;
// references to tables not in defs are listed in Missing.
func Build(defs []*schema.TableDefinition) *Graph {
	g := NewGraph()
	for _, def := range defs {
		g.AddNode(def.Name)
	}

	for _, def := range defs {
		selfRef := false
		for _, fk := range def.ForeignKeys {
			switch {
			case fk.ReferencedTable == def.Name:
				selfRef = true
			case !g.HasNode(fk.ReferencedTable):
				g.Missing = append(g.Missing, Edge{From: fk.ReferencedTable, To: def.Name})
			default:
				g.AddEdgeWithMeta(fk.ReferencedTable, def.Name, EdgeMeta{
					LocalColumns:      fk.LocalColumns,
					ReferencedColumns: fk.ReferencedColumns,
				})
			}
		}
		if selfRef {
			g.SelfReferences = append(g.SelfReferences, def.Name)
		}
	}

	return g
}
