package clique

import (
	"context"

	"github.com/ChrisMcGann/CliqueKey/pkg/similarity"
)

// DBSCAN groups nodes by density using cosine distance 1 - M[i][j], with the
// assignment tolerance as the neighborhood radius. Noise nodes are left unassigned.
type DBSCAN struct {
	MinPoints int // Minimum neighborhood size of a core node, itself included (0 = 2)
}

// Assign implements Assigner.
func (d *DBSCAN) Assign(ctx context.Context, m *similarity.Matrix, nodeIDs []int, tolerance float64) ([]Assignment, error) {
	if err := checkShape(m, nodeIDs); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	minPts := d.MinPoints
	if minPts <= 0 {
		minPts = 2
	}

	const (
		undefined = 0
		noise     = -1
	)

	n := m.Len()
	labels := make([]int, n)
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != undefined {
			continue
		}

		neighbors := rangeQuery(m, i, tolerance)
		if len(neighbors) < minPts {
			labels[i] = noise
			continue
		}

		clusterID++
		labels[i] = clusterID

		seed := make([]int, 0, len(neighbors))
		for _, j := range neighbors {
			if j != i {
				seed = append(seed, j)
			}
		}

		for len(seed) > 0 {
			q := seed[0]
			seed = seed[1:]

			if labels[q] == noise {
				labels[q] = clusterID // border node
			}
			if labels[q] != undefined {
				continue
			}
			labels[q] = clusterID

			qNeighbors := rangeQuery(m, q, tolerance)
			if len(qNeighbors) >= minPts {
				seed = append(seed, qNeighbors...)
			}
		}
	}

	var out []Assignment
	for i, label := range labels {
		if label > 0 {
			out = append(out, Assignment{NodeID: nodeIDs[i], CliqueID: label})
		}
	}
	return out, nil
}

// rangeQuery returns i and every node within eps cosine distance of i.
func rangeQuery(m *similarity.Matrix, i int, eps float64) []int {
	neighbors := []int{i}
	for j, w := range m.Row(i) {
		if j != i && 1-w <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
