// Package engine groups the features of one sample into cliques of
// co-varying signals.
//
// An Engine runs a fixed sequence of phases: trace reconstruction, similarity
// computation, optional near-duplicate filtering, clique assignment and
// backfill. Cancellation is honored between phases only, so the similarity
// matrix is never observed half computed.
package engine

import (
	"context"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/CliqueKey/pkg/clique"
	"github.com/ChrisMcGann/CliqueKey/pkg/core"
	"github.com/ChrisMcGann/CliqueKey/pkg/filter"
	"github.com/ChrisMcGann/CliqueKey/pkg/similarity"
	"github.com/ChrisMcGann/CliqueKey/pkg/trace"
)

var (
	// Error is the error class for engine failures.
	Error = errs.Class("engine")
	// AssignerError wraps failures of the clique assigner. They are fatal.
	AssignerError = errs.Class("assigner")
)

// State is a phase of a clique computation.
type State int

// Engine states, in order.
const (
	Initialized State = iota
	TracesBuilt
	SimilarityComputed
	Filtered
	CliquesAssigned
	BackfillComplete
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case TracesBuilt:
		return "traces-built"
	case SimilarityComputed:
		return "similarity-computed"
	case Filtered:
		return "filtered"
	case CliquesAssigned:
		return "cliques-assigned"
	case BackfillComplete:
		return "backfill-complete"
	}
	return "unknown"
}

// Params configures ComputeCliques.
type Params struct {
	Filter          bool          // Remove near-duplicate features before assignment
	Duplicates      filter.Config // Duplicate tolerances, used when Filter is set
	CliqueTolerance float64       // Passed to the assigner
}

// DefaultParams returns the parameters of a run without filtering.
func DefaultParams() Params {
	return Params{
		Duplicates:      filter.DefaultConfig(),
		CliqueTolerance: 0.00001,
	}
}

// Result is a total clique assignment over the surviving features.
type Result struct {
	Cliques     map[int]int         // Feature table row id -> clique id
	Assignments []clique.Assignment // Node id -> clique id, surviving feature order

	Features []core.Feature     // Surviving features
	Removed  []core.Feature     // Features removed as near-duplicates
	Traces   []trace.Trace      // Traces of surviving features
	Matrix   *similarity.Matrix // Similarity over surviving features

	RemovedCount    int
	BackfilledCount int
	UnmatchedTraces int // Features whose rt bounds matched no scan
	CliqueCount     int
}

// Engine computes cliques for one feature list. It is not reusable.
type Engine struct {
	raw      core.RawFile
	features []core.Feature
	assigner clique.Assigner
	builder  *trace.Builder
	log      *zap.Logger
	observer Observer

	state  State
	traces []trace.Trace
	matrix *similarity.Matrix
	used   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithObserver registers an observer for phase progress.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithTraceBuilder replaces the default nearest-scan trace builder.
func WithTraceBuilder(b *trace.Builder) Option {
	return func(e *Engine) { e.builder = b }
}

// New creates an engine over raw and features. Features are copied; their
// node ids must be positive and unique.
func New(raw core.RawFile, features []core.Feature, assigner clique.Assigner, opts ...Option) (*Engine, error) {
	if raw == nil {
		return nil, Error.New("raw file is required")
	}
	if assigner == nil {
		return nil, Error.New("clique assigner is required")
	}
	if err := core.ValidateFeatures(features); err != nil {
		return nil, Error.Wrap(err)
	}

	e := &Engine{
		raw:      raw,
		features: append([]core.Feature(nil), features...),
		assigner: assigner,
		builder:  &trace.Builder{},
		log:      zap.NewNop(),
		state:    Initialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State returns the current phase.
func (e *Engine) State() State { return e.state }

// ComputeCliques runs every phase and returns the clique of each surviving feature.
// An empty feature list yields an empty result.
func (e *Engine) ComputeCliques(ctx context.Context, p Params) (_ *Result, err error) {
	if e.used {
		return nil, Error.New("engine already ran")
	}
	e.used = true

	res := &Result{Cliques: make(map[int]int)}
	if len(e.features) == 0 {
		e.log.Info("no features to group")
		e.advance(BackfillComplete, time.Now(), 0)
		return res, nil
	}

	// Traces.
	start := time.Now()
	traces, stats := e.builder.Build(e.raw, e.features)
	e.traces = traces
	res.UnmatchedTraces = stats.Unmatched
	if stats.Unmatched > 0 {
		e.log.Warn("features without matching scans",
			zap.Int("unmatched", stats.Unmatched),
			zap.Stringer("match", e.builder.Match))
	}
	e.advance(TracesBuilt, start, len(traces))
	if err := ctx.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	// Similarity.
	start = time.Now()
	e.matrix, err = similarity.Compute(e.traces)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	e.advance(SimilarityComputed, start, e.matrix.Len())
	if err := ctx.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	// Near-duplicates.
	if p.Filter {
		start = time.Now()
		if err := e.removeDuplicates(p.Duplicates, res); err != nil {
			return nil, err
		}
		e.advance(Filtered, start, res.RemovedCount)
		if err := ctx.Err(); err != nil {
			return nil, Error.Wrap(err)
		}
	}

	// Assignment.
	start = time.Now()
	nodeIDs := core.NodeIDs(e.features)
	assigned, err := e.assigner.Assign(ctx, e.matrix, nodeIDs, p.CliqueTolerance)
	if err != nil {
		return nil, AssignerError.Wrap(err)
	}
	e.advance(CliquesAssigned, start, len(assigned))

	// Backfill.
	start = time.Now()
	filled, err := clique.Backfill(assigned, nodeIDs)
	if err != nil {
		return nil, AssignerError.Wrap(err)
	}
	e.log.Info("ungrouped features backfilled",
		zap.Int("backfilled", filled.Backfilled),
		zap.Int("max_assigned", filled.MaxAssigned))

	rows := make(map[int]int, len(e.features))
	for _, f := range e.features {
		rows[f.NodeID] = f.RowID
	}
	for _, a := range filled.Assignments {
		res.Cliques[rows[a.NodeID]] = a.CliqueID
	}
	res.Assignments = filled.Assignments
	res.BackfilledCount = filled.Backfilled
	res.CliqueCount = len(clique.Cliques(filled.Assignments))
	res.Features = e.features
	res.Traces = e.traces
	res.Matrix = e.matrix
	e.advance(BackfillComplete, start, res.CliqueCount)

	return res, nil
}

// removeDuplicates applies the duplicate filter to the working features,
// traces and matrix together.
func (e *Engine) removeDuplicates(cfg filter.Config, res *Result) error {
	out, err := cfg.Apply(e.matrix, e.features)
	if err != nil {
		return Error.Wrap(err)
	}

	res.Removed = out.Removed
	res.RemovedCount = len(out.Removed)
	if len(out.Removed) == 0 {
		e.log.Info("no feature deleted")
		return nil
	}

	traces := make([]trace.Trace, len(out.Kept))
	for i, k := range out.Kept {
		traces[i] = e.traces[k]
	}
	e.traces = traces
	e.features = out.Features
	e.matrix = out.Matrix

	for _, f := range out.Removed {
		e.log.Debug("near-duplicate feature removed",
			zap.Int("row_id", f.RowID),
			zap.Int("node_id", f.NodeID))
	}
	e.log.Info("features deleted", zap.Int("removed", len(out.Removed)))
	return nil
}

func (e *Engine) advance(s State, start time.Time, count int) {
	e.state = s
	if e.observer != nil {
		e.observer.PhaseDone(Progress{State: s, Count: count, Elapsed: time.Since(start)})
	}
}
