// Package clique partitions features into groups of co-varying signals.
//
// The partition itself is delegated to an Assigner, which may leave nodes it
// cannot confidently group unassigned. Backfill then gives every such node a
// singleton clique so that the final assignment is total.
package clique

import (
	"context"
	"sort"
	"strings"

	"github.com/zeebo/errs"

	"github.com/ChrisMcGann/CliqueKey/pkg/similarity"
)

// Error is the error class for clique assignment.
var Error = errs.Class("clique")

// Assignment places one node in one clique.
type Assignment struct {
	NodeID   int `json:"node_id"`
	CliqueID int `json:"clique_id"`
}

// Assigner partitions nodes using their similarity matrix. nodeIDs[i] names
// row i of m. The result may omit nodes.
type Assigner interface {
	Assign(ctx context.Context, m *similarity.Matrix, nodeIDs []int, tolerance float64) ([]Assignment, error)
}

// Backfilled is a total clique assignment.
type Backfilled struct {
	Assignments []Assignment // One per node, in node order
	MaxAssigned int          // Largest clique id produced by the assigner, 0 if none
	Backfilled  int          // Nodes that received a singleton clique
}

// Backfill completes a partial assignment. Every node absent from assigned
// receives a fresh clique id, counting up from the largest assigned id in node order.
func Backfill(assigned []Assignment, nodeIDs []int) (*Backfilled, error) {
	known := make(map[int]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		known[id] = struct{}{}
	}

	byNode := make(map[int]int, len(assigned))
	maxClique := 0
	for _, a := range assigned {
		if _, ok := known[a.NodeID]; !ok {
			return nil, Error.New("assigner returned unknown node %d", a.NodeID)
		}
		if _, dup := byNode[a.NodeID]; dup {
			return nil, Error.New("assigner returned node %d more than once", a.NodeID)
		}
		if a.CliqueID <= 0 {
			return nil, Error.New("assigner returned non-positive clique id %d for node %d", a.CliqueID, a.NodeID)
		}
		byNode[a.NodeID] = a.CliqueID
		if a.CliqueID > maxClique {
			maxClique = a.CliqueID
		}
	}

	out := &Backfilled{
		Assignments: make([]Assignment, 0, len(nodeIDs)),
		MaxAssigned: maxClique,
	}
	next := maxClique
	for _, id := range nodeIDs {
		cliqueID, ok := byNode[id]
		if !ok {
			next++
			cliqueID = next
			out.Backfilled++
		}
		out.Assignments = append(out.Assignments, Assignment{NodeID: id, CliqueID: cliqueID})
	}

	return out, nil
}

// Cliques groups assignments by clique id. Node ids keep assignment order.
func Cliques(assignments []Assignment) map[int][]int {
	groups := make(map[int][]int)
	for _, a := range assignments {
		groups[a.CliqueID] = append(groups[a.CliqueID], a.NodeID)
	}
	return groups
}

var registry = map[string]func() Assigner{
	"loglik": func() Assigner { return &LogLikelihood{} },
	"dbscan": func() Assigner { return &DBSCAN{} },
}

// Lookup returns a new assigner registered under name.
func Lookup(name string) (Assigner, error) {
	factory, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, Error.New("unknown assigner %q, must be one of %s", name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

// Names lists registered assigner names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkShape(m *similarity.Matrix, nodeIDs []int) error {
	if m.Len() != len(nodeIDs) {
		return Error.New("matrix dimension %d does not match %d nodes", m.Len(), len(nodeIDs))
	}
	return nil
}
