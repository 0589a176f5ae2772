// Package sqlite provides SQLite database writing for clique grouping results
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/CliqueKey/pkg/core"
	"github.com/ChrisMcGann/CliqueKey/pkg/engine"
)

const (
	// Date format for RunTable and HeaderTable (ISO 8601)
	dateFormat = "2006-01-02T15:04:05Z07:00"
	// Schema version written to HeaderTable
	schemaVersion = 1
)

// Run describes one grouped sample.
type Run struct {
	Sample   string
	Assigner string
	Params   engine.Params
	Result   *engine.Result
}

// Writer handles writing grouping results to SQLite database files.
// It is safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	db         *sql.DB
	outputPath string
	codec      *traceCodec
	runs       int
	closed     bool
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	codec, err := newTraceCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		codec:      codec,
	}

	if err := w.createTables(); err != nil {
		codec.Close()
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId INTEGER PRIMARY KEY AUTOINCREMENT,
		Sample TEXT,
		CreationDate TEXT,
		Assigner TEXT,
		Filter BOOL,
		MzTolerance DOUBLE,
		RtTolerance DOUBLE,
		IntensityTolerance DOUBLE,
		CliqueTolerance DOUBLE,
		FeatureCount INTEGER,
		RemovedCount INTEGER,
		BackfilledCount INTEGER,
		UnmatchedCount INTEGER,
		CliqueCount INTEGER
	);

	CREATE TABLE IF NOT EXISTS FeatureTable (
		RunId INTEGER REFERENCES RunTable(RunId),
		RowId INTEGER,
		NodeId INTEGER,
		CliqueId INTEGER,
		Mz DOUBLE,
		MzMin DOUBLE,
		MzMax DOUBLE,
		Rt DOUBLE,
		RtMin DOUBLE,
		RtMax DOUBLE,
		Intensity DOUBLE,
		Removed BOOL,
		blobTrace BLOB,
		PRIMARY KEY (RunId, RowId)
	);

	CREATE INDEX IF NOT EXISTS FeatureClique ON FeatureTable (RunId, CliqueId);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// WriteRun writes a run and all of its features in one transaction and
// returns the run id.
func (w *Writer) WriteRun(run Run) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fmt.Errorf("writer for %s is closed", w.outputPath)
	}

	res := run.Result
	tx, err := w.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dup := run.Params.Duplicates
	result, err := tx.Exec(`
		INSERT INTO RunTable (
			Sample, CreationDate, Assigner, Filter, MzTolerance, RtTolerance,
			IntensityTolerance, CliqueTolerance, FeatureCount, RemovedCount,
			BackfilledCount, UnmatchedCount, CliqueCount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.Sample,
		time.Now().UTC().Format(dateFormat),
		run.Assigner,
		run.Params.Filter,
		dup.MZTolerance,
		dup.RTTolerance,
		dup.IntensityTolerance,
		run.Params.CliqueTolerance,
		len(res.Features)+len(res.Removed),
		res.RemovedCount,
		res.BackfilledCount,
		res.UnmatchedTraces,
		res.CliqueCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO FeatureTable (
			RunId, RowId, NodeId, CliqueId, Mz, MzMin, MzMax, Rt, RtMin, RtMax,
			Intensity, Removed, blobTrace
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare feature statement: %w", err)
	}
	defer stmt.Close()

	cliques := make(map[int]int, len(res.Assignments))
	for _, a := range res.Assignments {
		cliques[a.NodeID] = a.CliqueID
	}

	for i, f := range res.Features {
		var blob []byte
		if i < len(res.Traces) {
			blob = w.codec.Encode(res.Traces[i])
		}
		if err := insertFeature(stmt, runID, f, cliques[f.NodeID], false, blob); err != nil {
			return 0, err
		}
	}
	for _, f := range res.Removed {
		if err := insertFeature(stmt, runID, f, 0, true, nil); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	w.runs++
	return runID, nil
}

func insertFeature(stmt *sql.Stmt, runID int64, f core.Feature, cliqueID int, removed bool, blob []byte) error {
	var clique interface{} = nil
	if !removed {
		clique = cliqueID
	}

	_, err := stmt.Exec(
		runID,       // RunId
		f.RowID,     // RowId
		f.NodeID,    // NodeId
		clique,      // CliqueId
		f.MZ,        // Mz
		f.MZMin,     // MzMin
		f.MZMax,     // MzMax
		f.RT,        // Rt
		f.RTMin,     // RtMin
		f.RTMax,     // RtMax
		f.Intensity, // Intensity
		removed,     // Removed
		blob,        // blobTrace
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", f.Name(), err)
	}
	return nil
}

// Finalize writes the header table and closes the database
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	defer w.codec.Close()

	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, Description)
		VALUES (?, ?, ?)
	`, schemaVersion, time.Now().UTC().Format(dateFormat), fmt.Sprintf("%d runs", w.runs))
	if err != nil {
		w.db.Close()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
