// internal/provision/provision.go
//
// Physical-namespace provisioning for one admission cycle.
//
// Context
// -------
// Run executes against the *new* cycle's own pool (its DSN pins
// search_path to the target schema), not the directory's transaction, so
// the directory cannot roll it back.  The orchestrator compensates
// explicitly: on failure it rolls back its directory tx and calls Drop
// against the shared pool to sweep the half-built schema.
//
// Everything Run does—schema creation, baseline DDL, reference seed,
// shift grid—happens in a single transaction on the tenant pool, so a
// failed seed never leaves a partially-populated schema behind either.
package provision

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Options tunes the seeds that depend on deployment policy rather than
// on the request alone.
type Options struct {
	EmailDomain     string
	CreateSchedules bool
}

// Run creates the schema and seeds its baseline content.  shifts must
// come from BuildShifts.
func Run(ctx context.Context, db *sqlx.DB, schema string, shifts []Shift, opts Options) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("provision: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE SCHEMA `+pq.QuoteIdentifier(schema)); err != nil {
		return fmt.Errorf("provision: create schema %s: %w", schema, err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("provision: baseline ddl: %w", err)
	}
	refs, err := seedReference(ctx, tx)
	if err != nil {
		return err
	}
	sessions, err := seedShifts(ctx, tx, shifts)
	if err != nil {
		return err
	}
	plans := classPlans(shifts, opts.EmailDomain)
	if err := seedClasses(ctx, tx, refs, plans); err != nil {
		return err
	}
	if opts.CreateSchedules {
		if err := seedSchedules(ctx, tx, refs, plans, sessions); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("provision: commit: %w", err)
	}
	return nil
}

// Drop is the compensating action for a failed Run: it removes whatever
// part of the schema was created.  Runs on the shared (directory) pool
// because the tenant pool's search_path may point at the schema being
// dropped.
func Drop(ctx context.Context, db *sqlx.DB, schema string) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS `+pq.QuoteIdentifier(schema)+` CASCADE`)
	return err
}
