package server

import (
	"sort"

	"github.com/ChrisMcGann/CliqueKey/pkg/core"
	"github.com/ChrisMcGann/CliqueKey/pkg/engine"
)

// ScanJSON is one scan of a request. Points are [mz, intensity] pairs.
type ScanJSON struct {
	Number int          `json:"number,omitempty"`
	RT     float64      `json:"rt"`
	Points [][2]float64 `json:"points"`
}

// FeatureJSON is one feature table row of a request.
type FeatureJSON struct {
	ID        int     `json:"id"`
	MZ        float64 `json:"mz"`
	MZMin     float64 `json:"mzmin"`
	MZMax     float64 `json:"mzmax"`
	RT        float64 `json:"rt"`
	RTMin     float64 `json:"rtmin"`
	RTMax     float64 `json:"rtmax"`
	Intensity float64 `json:"intensity"`
}

// CliqueRequest is the body of POST /api/cliques. Nil parameters fall back
// to the server defaults.
type CliqueRequest struct {
	Sample   string        `json:"sample"`
	Scans    []ScanJSON    `json:"scans"`
	Features []FeatureJSON `json:"features"`

	Filter       *bool    `json:"filter,omitempty"`
	MZTol        *float64 `json:"mz_tol,omitempty"`
	RTTol        *float64 `json:"rt_tol,omitempty"`
	IntensityTol *float64 `json:"intensity_tol,omitempty"`
	CliqueTol    *float64 `json:"clique_tol,omitempty"`
	Assigner     string   `json:"assigner,omitempty"`
	ExactRT      bool     `json:"exact_rt,omitempty"`
}

func (req *CliqueRequest) params(defaults engine.Params) engine.Params {
	p := defaults
	if req.Filter != nil {
		p.Filter = *req.Filter
	}
	if req.MZTol != nil {
		p.Duplicates.MZTolerance = *req.MZTol
	}
	if req.RTTol != nil {
		p.Duplicates.RTTolerance = *req.RTTol
	}
	if req.IntensityTol != nil {
		p.Duplicates.IntensityTolerance = *req.IntensityTol
	}
	if req.CliqueTol != nil {
		p.CliqueTolerance = *req.CliqueTol
	}
	return p
}

func (req *CliqueRequest) scanList() core.ScanList {
	scans := make(core.ScanList, len(req.Scans))
	for i, s := range req.Scans {
		number := s.Number
		if number == 0 {
			number = i + 1
		}
		points := make([]core.DataPoint, len(s.Points))
		for j, p := range s.Points {
			points[j] = core.DataPoint{MZ: p[0], Intensity: p[1]}
		}
		scans[i] = core.Scan{Number: number, RetentionTime: s.RT, Points: points}
	}
	scans.SortByRetentionTime()
	return scans
}

func (req *CliqueRequest) featureList() []core.Feature {
	rows := make([]core.Feature, len(req.Features))
	for i, f := range req.Features {
		rows[i] = core.Feature{
			RowID: f.ID,
			MZ:    f.MZ, MZMin: f.MZMin, MZMax: f.MZMax,
			RT: f.RT, RTMin: f.RTMin, RTMax: f.RTMax,
			Intensity: f.Intensity,
		}
	}
	return core.NewFeatures(rows)
}

// CliqueJSON places one feature table row in a clique.
type CliqueJSON struct {
	RowID    int `json:"row_id"`
	NodeID   int `json:"node_id"`
	CliqueID int `json:"clique_id"`
}

// CliqueResponse is the body answering POST /api/cliques.
type CliqueResponse struct {
	Sample          string       `json:"sample,omitempty"`
	Cliques         []CliqueJSON `json:"cliques"`
	Removed         []int        `json:"removed"`
	RemovedCount    int          `json:"removed_count"`
	BackfilledCount int          `json:"backfilled_count"`
	UnmatchedCount  int          `json:"unmatched_count"`
	CliqueCount     int          `json:"clique_count"`
}

func newCliqueResponse(sample string, res *engine.Result) *CliqueResponse {
	rows := make(map[int]int, len(res.Features))
	for _, f := range res.Features {
		rows[f.NodeID] = f.RowID
	}

	out := &CliqueResponse{
		Sample:          sample,
		Cliques:         make([]CliqueJSON, 0, len(res.Assignments)),
		Removed:         make([]int, 0, len(res.Removed)),
		RemovedCount:    res.RemovedCount,
		BackfilledCount: res.BackfilledCount,
		UnmatchedCount:  res.UnmatchedTraces,
		CliqueCount:     res.CliqueCount,
	}
	for _, a := range res.Assignments {
		out.Cliques = append(out.Cliques, CliqueJSON{RowID: rows[a.NodeID], NodeID: a.NodeID, CliqueID: a.CliqueID})
	}
	for _, f := range res.Removed {
		out.Removed = append(out.Removed, f.RowID)
	}
	sort.Ints(out.Removed)
	return out
}
