// internal/config/model.go
//
// Typed configuration model for the admission backend.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                       – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `ADMISION_`-prefixed environment overrides – highest precedence.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Pool sizing lives here, not in code branches: production and
//     development deployments ship different YAML, the components never
//     inspect a runtime-mode flag.
//   • Oxford commas, two spaces after periods.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Database section
//

// Database holds the Postgres URL and per-pool sizing.
//
// One physical database backs every admission cycle; each cycle lives in
// its own schema.  `URL` must therefore carry no search_path of its own:
// the tenancy registry appends one per schema.  The `Tenant*` knobs size
// the per-schema pools, which are many and should stay small; the
// unprefixed knobs size the single directory (public-schema) pool.
type Database struct {
	URL string `koanf:"url" validate:"required"`

	MaxOpenConns int `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns int `koanf:"max_idle_conns" validate:"min=0"`

	TenantMaxOpenConns int `koanf:"tenant_max_open_conns" validate:"min=1"`
	TenantMaxIdleConns int `koanf:"tenant_max_idle_conns" validate:"min=0"`

	// Idle minutes before a cached tenant pool is closed and evicted.
	TenantIdleTTLMinutes int `koanf:"tenant_idle_ttl_minutes" validate:"min=1"`
}

//
// Admission section
//

// Admission holds lifecycle-orchestrator policy.
type Admission struct {
	// Seed every provisioned class with a full weekly schedule grid
	// unless the request says otherwise.
	SeedSchedules bool `koanf:"seed_schedules"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or ADMISION_ROOT override) so later code
// can build absolute file paths.
type Paths struct {
	Root string // ADMISION_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Admission Admission `koanf:"admission"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}
