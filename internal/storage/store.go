package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/san-kum/rtmsim/internal/sim"
	_ "modernc.org/sqlite"
)

const (
	metadataFile    = "metadata.json"
	individualsFile = "individuals.csv"
	indexFile       = "index.db"
)

var ErrNotInitialized = errors.New("storage: store not initialized")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	created_unix      INTEGER NOT NULL,
	seed              INTEGER NOT NULL,
	stream            INTEGER NOT NULL DEFAULT 0,
	population_mean   REAL NOT NULL,
	population_sd     REAL NOT NULL,
	measurement_error REAL NOT NULL,
	population_size   INTEGER NOT NULL,
	selection_count   INTEGER NOT NULL,
	selected          INTEGER NOT NULL,
	primary_mean      REAL NOT NULL,
	secondary_mean    REAL NOT NULL,
	regression_effect REAL NOT NULL
)`

// Store keeps one directory per run plus a SQLite index of all runs.
type Store struct {
	baseDir string
	db      *sqlx.DB
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the base directory and opens the run index.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	db, err := sqlx.Open("sqlite", filepath.Join(s.baseDir, indexFile))
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("create index: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type RunMetadata struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Seed      uint64      `json:"seed"`
	Stream    uint64      `json:"stream"`
	Params    sim.Params  `json:"params"`
	Summary   sim.Summary `json:"summary"`
}

// RunRecord is one row of the run index.
type RunRecord struct {
	ID               string  `db:"id" json:"id"`
	CreatedUnix      int64   `db:"created_unix" json:"created_unix"`
	Seed             int64   `db:"seed" json:"seed"`
	Stream           int64   `db:"stream" json:"stream"`
	PopulationMean   float64 `db:"population_mean" json:"population_mean"`
	PopulationSD     float64 `db:"population_sd" json:"population_sd"`
	MeasurementError float64 `db:"measurement_error" json:"measurement_error"`
	PopulationSize   int     `db:"population_size" json:"population_size"`
	SelectionCount   int     `db:"selection_count" json:"selection_count"`
	Selected         int     `db:"selected" json:"selected"`
	PrimaryMean      float64 `db:"primary_mean" json:"primary_mean"`
	SecondaryMean    float64 `db:"secondary_mean" json:"secondary_mean"`
	RegressionEffect float64 `db:"regression_effect" json:"regression_effect"`
}

func (r RunRecord) Created() time.Time {
	return time.Unix(0, r.CreatedUnix)
}

func newRunID(now time.Time) string {
	return fmt.Sprintf("rtm_%s_%s", now.Format("20060102T150405"), uuid.NewString()[:8])
}

// Save writes a run to disk and indexes it. seed is 0 for unseeded runs;
// stream is the engine stream the run drew from. On failure nothing of
// the run is left behind.
func (s *Store) Save(res *sim.Result, seed, stream uint64) (runID string, err error) {
	if s.db == nil {
		return "", ErrNotInitialized
	}

	now := time.Now()
	runID = newRunID(now)
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(runDir)
			runID = ""
		}
	}()

	meta := RunMetadata{
		ID:        runID,
		Timestamp: now,
		Seed:      seed,
		Stream:    stream,
		Params:    res.Params,
		Summary:   res.Summary,
	}

	if err = writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err = writeCSV(filepath.Join(runDir, individualsFile), res); err != nil {
		return "", err
	}

	rec := RunRecord{
		ID:               runID,
		CreatedUnix:      now.UnixNano(),
		Seed:             int64(seed),
		Stream:           int64(stream),
		PopulationMean:   res.Params.PopulationMean,
		PopulationSD:     res.Params.PopulationSD,
		MeasurementError: res.Params.MeasurementError,
		PopulationSize:   res.Params.PopulationSize,
		SelectionCount:   res.Params.SelectionCount,
		Selected:         res.Summary.Selected,
		PrimaryMean:      res.Summary.SelectedPrimaryMean,
		SecondaryMean:    res.Summary.SelectedSecondaryMean,
		RegressionEffect: res.Summary.RegressionEffect,
	}
	_, err = s.db.NamedExec(`
		INSERT INTO runs (
			id, created_unix, seed, stream, population_mean, population_sd, measurement_error,
			population_size, selection_count, selected, primary_mean, secondary_mean, regression_effect
		) VALUES (
			:id, :created_unix, :seed, :stream, :population_mean, :population_sd, :measurement_error,
			:population_size, :selection_count, :selected, :primary_mean, :secondary_mean, :regression_effect
		)`, rec)
	if err != nil {
		return "", fmt.Errorf("index run: %w", err)
	}

	return runID, nil
}

// List returns indexed runs, newest first.
func (s *Store) List() ([]RunRecord, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	runs := []RunRecord{}
	err := s.db.Select(&runs, `
		SELECT id, created_unix, seed, stream, population_mean, population_sd, measurement_error,
		       population_size, selection_count, selected, primary_mean, secondary_mean, regression_effect
		FROM runs
		ORDER BY created_unix DESC, rowid DESC`)
	return runs, err
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadResult rebuilds a saved run from its metadata and individuals file.
func (s *Store) LoadResult(runID string) (*RunMetadata, *sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, individualsFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	res, err := readIndividuals(file, meta.Params.PopulationSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", individualsFile, err)
	}
	res.Params = meta.Params
	res.Summary = meta.Summary
	return meta, res, nil
}

func readIndividuals(r io.Reader, sizeHint int) (*sim.Result, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	res := &sim.Result{
		Population: make([]float64, 0, sizeHint),
		Primary:    make([]float64, 0, sizeHint),
		Secondary:  make([]float64, 0, sizeHint),
		Mask:       make([]bool, 0, sizeHint),
	}
	if len(records) < 2 {
		return res, nil
	}

	for i, record := range records[1:] {
		if len(record) != len(csvHeader) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+1, len(csvHeader), len(record))
		}
		vals := make([]float64, 3)
		for j := range vals {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[j] = v
		}
		sel, err := strconv.ParseBool(record[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		res.Population = append(res.Population, vals[0])
		res.Primary = append(res.Primary, vals[1])
		res.Secondary = append(res.Secondary, vals[2])
		res.Mask = append(res.Mask, sel)
	}
	return res, nil
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, res *sim.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return ExportCSV(f, res)
}
