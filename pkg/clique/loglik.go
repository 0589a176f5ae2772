package clique

import (
	"context"
	"math"
	"sort"

	"github.com/ChrisMcGann/CliqueKey/pkg/similarity"
)

// edgeEpsilon bounds similarities away from 0 and 1 so logarithms stay finite.
const edgeEpsilon = 1e-10

// LogLikelihood groups nodes by greedily maximizing the log-likelihood of the
// similarity network: a pair inside a clique contributes log(w), a pair split
// across cliques log(1-w). Nodes without any positive similarity to another
// node are left unassigned.
type LogLikelihood struct {
	MaxIterations int // Sweep limit (0 = 100)
}

// Assign implements Assigner. Sweeps stop once the likelihood gain of a sweep
// is no larger than tolerance times the current likelihood magnitude.
func (l *LogLikelihood) Assign(ctx context.Context, m *similarity.Matrix, nodeIDs []int, tolerance float64) ([]Assignment, error) {
	if err := checkShape(m, nodeIDs); err != nil {
		return nil, err
	}

	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}

	// Only nodes with at least one edge take part.
	var nodes []int
	for i := 0; i < m.Len(); i++ {
		row := m.Row(i)
		for j, w := range row {
			if j != i && w > 0 {
				nodes = append(nodes, i)
				break
			}
		}
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	label := make(map[int]int, len(nodes))
	for _, v := range nodes {
		label[v] = v
	}
	nextLabel := m.Len()

	// Every node starts as a singleton: all pairs are split.
	likelihood := 0.0
	for a := 0; a < len(nodes); a++ {
		for b := a + 1; b < len(nodes); b++ {
			likelihood += math.Log(1 - weight(m, nodes[a], nodes[b]))
		}
	}

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, Error.Wrap(err)
		}

		gain := 0.0
		for _, v := range nodes {
			// score[c] is the likelihood change of having v inside clique c.
			score := make(map[int]float64)
			neighbor := make(map[int]bool)
			for _, u := range nodes {
				if u == v {
					continue
				}
				score[label[u]] += joinScore(m, v, u)
				if m.At(v, u) > 0 {
					neighbor[label[u]] = true
				}
			}

			candidates := make([]int, 0, len(neighbor))
			for c := range neighbor {
				candidates = append(candidates, c)
			}
			sort.Ints(candidates)

			current := label[v]
			best, bestScore := current, score[current]
			for _, c := range candidates {
				if score[c] > bestScore {
					best, bestScore = c, score[c]
				}
			}
			// Leaving for a fresh singleton scores 0.
			if bestScore < 0 {
				best, bestScore = -1, 0
			}

			delta := bestScore - score[current]
			if delta <= 1e-12 {
				continue
			}
			if best == -1 {
				best = nextLabel
				nextLabel++
			}
			label[v] = best
			gain += delta
		}

		likelihood += gain
		if gain == 0 || gain <= tolerance*math.Abs(likelihood) {
			break
		}
	}

	// Renumber cliques 1..k by first appearance.
	ids := make(map[int]int)
	out := make([]Assignment, 0, len(nodes))
	for _, v := range nodes {
		id, ok := ids[label[v]]
		if !ok {
			id = len(ids) + 1
			ids[label[v]] = id
		}
		out = append(out, Assignment{NodeID: nodeIDs[v], CliqueID: id})
	}
	return out, nil
}

func weight(m *similarity.Matrix, i, j int) float64 {
	return math.Min(math.Max(m.At(i, j), edgeEpsilon), 1-edgeEpsilon)
}

// joinScore is log(w) - log(1-w): the gain of placing i and j together.
func joinScore(m *similarity.Matrix, i, j int) float64 {
	w := weight(m, i, j)
	return math.Log(w) - math.Log(1-w)
}
