// Package store persists search runs, their trials and the fitted models
// in a SQLite database whose schema is managed by embedded migrations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/rssi-distance/internal/search"
	"github.com/banshee-data/rssi-distance/internal/timeutil"
)

// ErrNotFound is returned when a run or model does not exist.
var ErrNotFound = errors.New("not found")

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// timeFormat has a fixed-width fraction so stored timestamps sort
// lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps the run database.
type Store struct {
	db *sql.DB

	// Clock timestamps runs and models. Open sets the real clock.
	Clock timeutil.Clock
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, Clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) now() time.Time { return timeutil.OrReal(s.Clock).Now() }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Run is one search invocation.
type Run struct {
	ID             string
	Status         string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Config         json.RawMessage
	Kernel         string
	Prior          string
	Folds          int
	Rows           int
	Features       int
	BestBandwidths []float64
	BestAccuracy   float64
	BestStdDev     float64
	Error          string
}

// TrialRecord is the stored form of a search.Trial. Mean and StdDev are
// NaN for unscored trials.
type TrialRecord struct {
	Index      int
	Bandwidths []float64
	FoldScores []float64
	Mean       float64
	StdDev     float64
	Error      string
}

// TrialsFromResult converts search trials to their stored form.
func TrialsFromResult(res *search.Result) []TrialRecord {
	out := make([]TrialRecord, len(res.Trials))
	for i, t := range res.Trials {
		rec := TrialRecord{
			Index:      t.Index,
			Bandwidths: t.Bandwidths.Values,
			FoldScores: t.FoldScores,
			Mean:       t.Mean,
			StdDev:     t.StdDev,
		}
		if t.Err != nil {
			rec.Error = t.Err.Error()
		}
		out[i] = rec
	}
	return out
}

// InsertRun records the start of a run. An empty ID is replaced by a new
// one; the ID used is returned.
func (s *Store) InsertRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_runs (
			run_id, status, started_at, config_json, kernel, prior,
			folds, row_count, feature_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.StartedAt.UTC().Format(timeFormat), nullJSON(r.Config),
		r.Kernel, r.Prior, r.Folds, r.Rows, r.Features,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", r.ID, err)
	}
	return r.ID, nil
}

// CompleteRun stores the trials and best trial of a finished search.
func (s *Store) CompleteRun(ctx context.Context, runID string, res *search.Result) error {
	best := res.Best()
	bw, err := json.Marshal(best.Bandwidths.Values)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range TrialsFromResult(res) {
		if err := insertTrial(ctx, tx, runID, t); err != nil {
			return err
		}
	}
	now := s.now().UTC().Format(timeFormat)
	result, err := tx.ExecContext(ctx, `
		UPDATE search_runs
		SET status = ?, completed_at = ?, best_bandwidths = ?, best_accuracy = ?, best_stddev = ?
		WHERE run_id = ?`,
		StatusCompleted, now, string(bw), best.Mean, best.StdDev, runID,
	)
	if err != nil {
		return fmt.Errorf("completing run %s: %w", runID, err)
	}
	if err := requireRow(result, runID); err != nil {
		return err
	}
	return tx.Commit()
}

// FailRun marks a run as failed with the given error.
func (s *Store) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE search_runs SET status = ?, completed_at = ?, error = ? WHERE run_id = ?`,
		StatusFailed, s.now().UTC().Format(timeFormat), nullStr(msg), runID,
	)
	if err != nil {
		return fmt.Errorf("failing run %s: %w", runID, err)
	}
	return requireRow(result, runID)
}

func insertTrial(ctx context.Context, tx *sql.Tx, runID string, t TrialRecord) error {
	bw, err := json.Marshal(t.Bandwidths)
	if err != nil {
		return err
	}
	var scores *string
	if t.FoldScores != nil {
		b, err := json.Marshal(t.FoldScores)
		if err != nil {
			return err
		}
		scores = nullJSON(b)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO search_trials (
			run_id, trial_index, bandwidths, fold_scores, mean_accuracy, stddev_accuracy, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, t.Index, string(bw), scores, nullFloat(t.Mean), nullFloat(t.StdDev), nullStr(t.Error),
	)
	if err != nil {
		return fmt.Errorf("inserting trial %d of run %s: %w", t.Index, runID, err)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx, runSelect+` WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return &runs[0], nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns
// all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := runSelect + ` ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

const runSelect = `
	SELECT run_id, status, started_at, completed_at, config_json, kernel, prior,
	       folds, row_count, feature_count, best_bandwidths, best_accuracy, best_stddev, error
	FROM search_runs`

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var startedAt string
		var completedAt, cfg, bw, errMsg sql.NullString
		var acc, sd sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Status, &startedAt, &completedAt, &cfg, &r.Kernel, &r.Prior,
			&r.Folds, &r.Rows, &r.Features, &bw, &acc, &sd, &errMsg); err != nil {
			return nil, err
		}
		var err error
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: bad completed_at: %w", r.ID, err)
			}
			r.CompletedAt = &t
		}
		r.Config = jsonOrNil(cfg)
		if bw.Valid {
			if err := json.Unmarshal([]byte(bw.String), &r.BestBandwidths); err != nil {
				return nil, fmt.Errorf("run %s: bad best_bandwidths: %w", r.ID, err)
			}
		}
		r.BestAccuracy = floatOrNaN(acc)
		r.BestStdDev = floatOrNaN(sd)
		r.Error = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTrials returns the trials of a run in grid order.
func (s *Store) ListTrials(ctx context.Context, runID string) ([]TrialRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trial_index, bandwidths, fold_scores, mean_accuracy, stddev_accuracy, error
		FROM search_trials WHERE run_id = ? ORDER BY trial_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrialRecord
	for rows.Next() {
		var t TrialRecord
		var bw string
		var scores, errMsg sql.NullString
		var mean, sd sql.NullFloat64
		if err := rows.Scan(&t.Index, &bw, &scores, &mean, &sd, &errMsg); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(bw), &t.Bandwidths); err != nil {
			return nil, fmt.Errorf("trial %d: bad bandwidths: %w", t.Index, err)
		}
		if scores.Valid {
			if err := json.Unmarshal([]byte(scores.String), &t.FoldScores); err != nil {
				return nil, fmt.Errorf("trial %d: bad fold scores: %w", t.Index, err)
			}
		}
		t.Mean = floatOrNaN(mean)
		t.StdDev = floatOrNaN(sd)
		t.Error = errMsg.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveModel stores the serialized classifier produced by a run, replacing
// any earlier model for the same run.
func (s *Store) SaveModel(ctx context.Context, runID string, classes []int, blob []byte) error {
	cls, err := json.Marshal(classes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (run_id, created_at, classes, model_blob) VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			created_at = excluded.created_at, classes = excluded.classes, model_blob = excluded.model_blob`,
		runID, s.now().UTC().Format(timeFormat), string(cls), blob,
	)
	if err != nil {
		return fmt.Errorf("saving model for run %s: %w", runID, err)
	}
	return nil
}

// LoadModel returns the serialized classifier of a run.
func (s *Store) LoadModel(ctx context.Context, runID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT model_blob FROM models WHERE run_id = ?`, runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model for run %s: %w", runID, ErrNotFound)
	}
	return blob, err
}

// LatestModel returns the most recently saved model and its run ID.
func (s *Store) LatestModel(ctx context.Context) (string, []byte, error) {
	var runID string
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, model_blob FROM models ORDER BY created_at DESC LIMIT 1`).Scan(&runID, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("latest model: %w", ErrNotFound)
	}
	return runID, blob, err
}

func requireRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullJSON(data json.RawMessage) *string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	return &s
}

func jsonOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

func nullFloat(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func floatOrNaN(nf sql.NullFloat64) float64 {
	if !nf.Valid {
		return math.NaN()
	}
	return nf.Float64
}
