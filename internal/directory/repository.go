// internal/directory/repository.go
//
// Admission-process directory queries.
//
// Context
// -------
// The repository wraps the single public-schema pool.  The write path is
// built from two transactional halves—`DemoteAll` then either `Create` or
// `Promote`—so the “at most one current cycle” invariant is never
// observable broken outside a transaction.  The admission orchestrator
// composes those halves inside its own tx; `SetCurrent` is the packaged
// flavor for callers that only flip the flag.
//
// Workflow
// --------
//  1. Callers supply the directory *sqlx.DB once, at construction.
//  2. Tx-scoped helpers accept sqlx.ExtContext so they run equally against
//     the pool or an open *sqlx.Tx.
//  3. Unique-name violations surface as ErrConflict, missing rows as
//     ErrNotFound; everything else is returned verbatim for the caller to
//     wrap.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - Oxford commas, two spaces after periods.
package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrNotFound is returned when no row matches the requested cycle.
var ErrNotFound = errors.New("directory: admission process not found")

// ErrConflict is returned when a cycle name already exists.
var ErrConflict = errors.New("directory: admission process already exists")

const columns = `id, name, year, is_current, started, finished, description, created_at`

// Repository provides durable access to the admission_processes table.
type Repository struct {
	db *sqlx.DB
}

// New wraps the directory pool.
func New(db *sqlx.DB) *Repository { return &Repository{db: db} }

// DB exposes the underlying pool so the orchestrator can open its own
// transaction spanning demote, insert, and promote.
func (r *Repository) DB() *sqlx.DB { return r.db }

// EnsureSchema creates the directory table on first boot.  Idempotent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS admission_processes (
	    id          SMALLSERIAL PRIMARY KEY,
	    name        VARCHAR(48)  NOT NULL,
	    year        SMALLINT     NOT NULL CHECK (year BETWEEN 2020 AND 2100),
	    is_current  BOOLEAN      NOT NULL DEFAULT FALSE,
	    started     DATE         NOT NULL DEFAULT CURRENT_DATE,
	    finished    DATE         NOT NULL DEFAULT CURRENT_DATE,
	    description VARCHAR(255),
	    created_at  TIMESTAMP    NOT NULL DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS admission_process_name_unique
	    ON admission_processes (name);
	CREATE TABLE IF NOT EXISTS observations (
	    id                   SERIAL PRIMARY KEY,
	    admission_process_id SMALLINT NOT NULL
	        REFERENCES admission_processes (id) ON DELETE CASCADE,
	    description          VARCHAR(500),
	    created_at           TIMESTAMP NOT NULL DEFAULT NOW()
	)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// DemoteAll clears is_current on every row.  Must run inside the same
// transaction as the Create or Promote that follows it.
func (r *Repository) DemoteAll(ctx context.Context, ex sqlx.ExtContext) error {
	_, err := ex.ExecContext(ctx, `UPDATE admission_processes SET is_current = FALSE WHERE is_current`)
	return err
}

// Create inserts a new cycle row and returns it.  A duplicate name maps
// to ErrConflict so callers can offer “choose another name.”
func (r *Repository) Create(ctx context.Context, ex sqlx.ExtContext, rec Record) (*Record, error) {
	const q = `
	INSERT INTO admission_processes (name, year, is_current, started, finished, description)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + columns
	var out Record
	err := sqlx.GetContext(ctx, ex, &out, q,
		rec.Name, rec.Year, rec.IsCurrent, rec.Started, rec.Finished, rec.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &out, nil
}

// Promote sets is_current on the named row.  ErrNotFound when no row
// matches.  Callers must have demoted inside the same transaction first.
func (r *Repository) Promote(ctx context.Context, ex sqlx.ExtContext, name string) (*Record, error) {
	const q = `
	UPDATE admission_processes SET is_current = TRUE
	WHERE  name = $1
	RETURNING ` + columns
	var out Record
	err := sqlx.GetContext(ctx, ex, &out, q, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCurrent transactionally clears is_current everywhere, then sets it
// on the row matching name.  No intermediate state—with two or zero
// current rows—is ever externally observable.
func (r *Repository) SetCurrent(ctx context.Context, name string) (*Record, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := r.DemoteAll(ctx, tx); err != nil {
		return nil, err
	}
	rec, err := r.Promote(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Current returns the row with is_current = TRUE, observations
// attached.  This is also the value the registry's main slot is
// initialized from at startup.
func (r *Repository) Current(ctx context.Context) (*Record, error) {
	const q = `SELECT ` + columns + ` FROM admission_processes WHERE is_current LIMIT 1`
	var out Record
	err := r.db.GetContext(ctx, &out, q)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachObservations(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ByName fetches one cycle row by schema name, observations attached.
func (r *Repository) ByName(ctx context.Context, name string) (*Record, error) {
	const q = `SELECT ` + columns + ` FROM admission_processes WHERE name = $1 LIMIT 1`
	var out Record
	err := r.db.GetContext(ctx, &out, q, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachObservations(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// All returns every cycle, newest first, observations attached.
func (r *Repository) All(ctx context.Context) ([]Record, error) {
	const q = `SELECT ` + columns + ` FROM admission_processes ORDER BY year DESC, created_at DESC`
	var rows []Record
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	if err := r.attachObservations(ctx, recordPtrs(rows)...); err != nil {
		return nil, err
	}
	return rows, nil
}

// attachObservations fills each record's Observations slice with one
// batched query.  Records without notes keep an empty, non-nil slice so
// the JSON shape stays stable.
func (r *Repository) attachObservations(ctx context.Context, recs ...*Record) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]int16, 0, len(recs))
	byID := make(map[int16]*Record, len(recs))
	for _, rec := range recs {
		rec.Observations = []Observation{}
		ids = append(ids, rec.ID)
		byID[rec.ID] = rec
	}

	q, args, err := sqlx.In(`
	SELECT id, admission_process_id, description, created_at
	FROM   observations
	WHERE  admission_process_id IN (?)
	ORDER  BY created_at`, ids)
	if err != nil {
		return err
	}
	var obs []Observation
	if err := r.db.SelectContext(ctx, &obs, r.db.Rebind(q), args...); err != nil {
		return err
	}
	for _, o := range obs {
		if rec, ok := byID[o.ProcessID]; ok {
			rec.Observations = append(rec.Observations, o)
		}
	}
	return nil
}

func recordPtrs(rows []Record) []*Record {
	out := make([]*Record, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

// isUniqueViolation recognises Postgres error 23505 without string
// matching.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
