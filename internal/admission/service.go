// internal/admission/service.go
//
// Admission-cycle lifecycle orchestrator.
//
// Context
// -------
// Provision is the one write path that spans two resources: the directory
// table (transactional) and the new cycle's physical schema (a different
// connection, outside the directory tx).  The two cannot be made atomic
// by Postgres alone, so the flow is a saga with an explicit ordering
// decision: provision-then-commit.
//
//  1. Validate input — dates, shift windows.  No side effects.
//  2. Open a directory tx; demote every cycle; insert the new row
//     (non-current).  A duplicate name aborts here and the rollback
//     undoes the demotion.
//  3. Provision the schema on the cycle's own pool: DDL plus baseline
//     seed, one tenant-side transaction.
//  4. On provisioning failure: roll back the directory tx (the row never
//     becomes visible), sweep the half-built schema best-effort, and
//     surface a hard failure.  The previous cycle stays current and the
//     main pool is untouched.
//  5. On success: promote the new row inside the same directory tx,
//     commit, then swap the registry's main slot so default traffic
//     routes to the new cycle.
//
// A concurrent reader mid-flight may still be using the pre-switch main
// pool for a moment after step 5; that eventual-consistency window is
// accepted, the directory flag flip itself is atomic.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sigedu/admision/internal/cache"
	"github.com/sigedu/admision/internal/directory"
	"github.com/sigedu/admision/internal/metrics"
	"github.com/sigedu/admision/internal/provision"
	"github.com/sigedu/admision/internal/tenancy"
)

// ErrValidation classifies rejected input: nothing was changed.
var ErrValidation = errors.New("admission: invalid input")

const listCacheKey = "all"

// ProvisionInput is the orchestrator's sole entry-point payload.
type ProvisionInput struct {
	Name     string           `json:"name" validate:"required,max=40"`
	Year     int              `json:"year" validate:"required,min=2020,max=2100"`
	Started  time.Time        `json:"started" validate:"required"`
	Finished time.Time        `json:"finished" validate:"required"`
	Config   provision.Config `json:"configuration"`
}

// ProvisionResult reports the committed outcome.
type ProvisionResult struct {
	Success    bool   `json:"success"`
	TenantName string `json:"tenantName"`
}

// Defaults is deployment policy applied when a request leaves a choice
// open.
type Defaults struct {
	// SeedSchedules fills weekly grids for provisioned classes when the
	// request's createSchedules field is unset.
	SeedSchedules bool
}

// Service orchestrates cycle provisioning and current-cycle switches.
type Service struct {
	dir      *directory.Repository
	registry *tenancy.Registry
	defaults Defaults
	listTTL  *cache.TTL
	validate *validator.Validate
}

// NewService wires the orchestrator.
func NewService(dir *directory.Repository, registry *tenancy.Registry, defaults Defaults) *Service {
	return &Service{
		dir:      dir,
		registry: registry,
		defaults: defaults,
		listTTL:  cache.New(time.Minute),
		validate: validator.New(),
	}
}

// InitMain wires the registry's main slot to the directory's current
// cycle.  Called once at boot; a failure is logged at error level and
// leaves the slot unset, so later default reads fail loudly instead of
// silently targeting the wrong schema.
func (s *Service) InitMain(ctx context.Context) {
	rec, err := s.dir.Current(ctx)
	if err != nil {
		zap.L().Error("main pool not initialized: no current admission cycle", zap.Error(err))
		return
	}
	if _, err := s.registry.SetMain(rec.Name); err != nil {
		zap.L().Error("main pool not initialized", zap.String("schema", rec.Name), zap.Error(err))
	}
}

// Provision runs the full saga described in the package comment.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*ProvisionResult, error) {
	// 1. Validate.
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !in.Started.Before(in.Finished) {
		return nil, fmt.Errorf("%w: start date must precede end date", ErrValidation)
	}
	shifts, err := provision.BuildShifts(in.Config.Shifts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	schema := SchemaName(in.Name, in.Year)

	// 2. Directory tx: demote all, insert non-current.
	tx, err := s.dir.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("admission: begin directory tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.dir.DemoteAll(ctx, tx); err != nil {
		return nil, fmt.Errorf("admission: demote current cycle: %w", err)
	}
	desc := in.Name + " " + strconv.Itoa(in.Year)
	if _, err := s.dir.Create(ctx, tx, directory.Record{
		Name:        schema,
		Year:        int16(in.Year),
		Started:     in.Started,
		Finished:    in.Finished,
		Description: &desc,
	}); err != nil {
		return nil, err // ErrConflict or storage error; rollback undoes the demote
	}

	// 3. Provision the physical schema on the cycle's own pool.
	seedOpts := provision.Options{
		EmailDomain:     in.Config.EmailDomain,
		CreateSchedules: s.defaults.SeedSchedules,
	}
	if in.Config.CreateSchedules != nil {
		seedOpts.CreateSchedules = *in.Config.CreateSchedules
	}
	pool, err := s.registry.Get(schema)
	if err == nil {
		err = provision.Run(ctx, pool, schema, shifts, seedOpts)
	}
	if err != nil {
		// 4. Compensate: directory rolls back via defer, schema is swept.
		metrics.ProvisionFailuresTotal.Inc()
		zap.L().Error("provisioning failed, cycle not promoted",
			zap.String("schema", schema), zap.Error(err))
		if dropErr := provision.Drop(ctx, s.dir.DB(), schema); dropErr != nil {
			zap.L().Error("sweeping half-built schema failed",
				zap.String("schema", schema), zap.Error(dropErr))
		}
		return nil, fmt.Errorf("admission: provisioning %s: %w", schema, err)
	}

	// 5. Promote and commit, then re-route default traffic.
	if _, err := s.dir.Promote(ctx, tx, schema); err != nil {
		return nil, fmt.Errorf("admission: promote %s: %w", schema, err)
	}
	if err := tx.Commit(); err != nil {
		metrics.ProvisionFailuresTotal.Inc()
		if dropErr := provision.Drop(ctx, s.dir.DB(), schema); dropErr != nil {
			zap.L().Error("sweeping schema after commit failure",
				zap.String("schema", schema), zap.Error(dropErr))
		}
		return nil, fmt.Errorf("admission: commit directory tx: %w", err)
	}

	if _, err := s.registry.SetMain(schema); err != nil {
		// The directory already points at the new cycle; surface the
		// routing failure rather than pretending the switch completed.
		zap.L().Error("cycle committed but main pool swap failed",
			zap.String("schema", schema), zap.Error(err))
		return nil, fmt.Errorf("admission: set main pool %s: %w", schema, err)
	}

	s.listTTL.Invalidate(listCacheKey)
	metrics.ProvisionTotal.Inc()
	zap.L().Info("admission cycle provisioned", zap.String("schema", schema))
	return &ProvisionResult{Success: true, TenantName: schema}, nil
}

// SetCurrent flips the directory's current flag to name and re-routes the
// main pool.  ErrNotFound when no cycle matches.
func (s *Service) SetCurrent(ctx context.Context, name string) (*directory.Record, error) {
	rec, err := s.dir.SetCurrent(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.SetMain(rec.Name); err != nil {
		zap.L().Error("current cycle set but main pool swap failed",
			zap.String("schema", rec.Name), zap.Error(err))
		return nil, fmt.Errorf("admission: set main pool %s: %w", rec.Name, err)
	}
	s.listTTL.Invalidate(listCacheKey)
	return rec, nil
}

// Current returns the directory's current cycle with its observations.
func (s *Service) Current(ctx context.Context) (*directory.Record, error) {
	return s.dir.Current(ctx)
}

// ByName returns one cycle by schema name with its observations.
// ErrNotFound when no cycle matches.
func (s *Service) ByName(ctx context.Context, name string) (*directory.Record, error) {
	return s.dir.ByName(ctx, name)
}

// List returns every cycle, newest first, memoized briefly because admin
// dashboards poll it.
func (s *Service) List(ctx context.Context) ([]directory.Record, error) {
	if v, ok := s.listTTL.Get(listCacheKey); ok {
		return v.([]directory.Record), nil
	}
	rows, err := s.dir.All(ctx)
	if err != nil {
		return nil, err
	}
	s.listTTL.Set(listCacheKey, rows)
	return rows, nil
}
