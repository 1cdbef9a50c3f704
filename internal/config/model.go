// internal/config/model.go
//
// Typed configuration model for visitlog.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `VISITLOG_`-prefixed environment overrides – highest precedence.
//
// A database password of the form `vault:<path>#<key>` is left untouched
// here; cmd/web resolves it through internal/vault before the pool opens,
// so credentials never live in YAML or git history.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • Zero values are filled by applyDefaults() after unmarshal and before
//     validation, so YAML only needs to carry what differs.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	BasePath        string        `koanf:"base_path"        validate:"omitempty,startswith=/"`
	ForceHTTPS      bool          `koanf:"force_https"`
	TrustedProxies  []string      `koanf:"trusted_proxies"  validate:"dive,cidr|ip"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

//
// Database section
//

// Database holds the DSN template and pool settings.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  `Password`, when set, replaces the DSN
// password; a `vault:` reference is resolved at startup.
type Database struct {
	DSN             string        `koanf:"dsn"               validate:"required"`
	Password        string        `koanf:"password"          validate:"vaultref"`
	MaxOpenConns    int           `koanf:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
	Retries         int           `koanf:"retries"           validate:"gte=0"`
}

// VaultRef reports whether Password is a Vault reference and splits it
// into secret path and key.
func (d Database) VaultRef() (path, key string, ok bool) {
	ref, found := strings.CutPrefix(d.Password, VaultPrefix)
	if !found {
		return "", "", false
	}
	path, key, found = strings.Cut(ref, "#")
	if !found || path == "" || key == "" {
		return "", "", false
	}
	return path, key, true
}

// VaultPrefix marks a value that must be fetched from Vault.
const VaultPrefix = "vault:"

//
// Geo section
//

// Geo configures IP geolocation.  An empty DBPath disables lookups.
// CacheSize bounds the in-process LRU of recent answers; 0 disables it.
type Geo struct {
	DBPath    string        `koanf:"db_path"`
	Timeout   time.Duration `koanf:"timeout"    validate:"gt=0"`
	CacheSize int           `koanf:"cache_size" validate:"gte=0"`
}

//
// Stats section
//

// Stats bounds the `days` window accepted by the stats endpoint.
type Stats struct {
	DefaultDays int `koanf:"default_days" validate:"gte=1,ltefield=MaxDays"`
	MaxDays     int `koanf:"max_days"     validate:"gte=1"`
}

//
// Admin section
//

// Admin configures the dashboard calendar.  Timezone is an IANA name; it
// decides where "today" starts and how the from/to date filters map to
// instants.
type Admin struct {
	Timezone string `koanf:"timezone" validate:"timezone"`
}

// Location loads Timezone.  Validation has already proven the name
// resolves, so an error here means the tz database went missing.
func (a Admin) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

//
// Log section
//

// Log configures the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or VISITLOG_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // VISITLOG_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Geo      Geo      `koanf:"geo"`
	Stats    Stats    `koanf:"stats"`
	Admin    Admin    `koanf:"admin"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

//
// defaults
//

// applyDefaults fills zero values.  It runs before validation.
func (c *Config) applyDefaults() {
	setDefault(&c.HTTP.ListenAddr, ":8080")
	setDefault(&c.HTTP.ReadTimeout, 10*time.Second)
	setDefault(&c.HTTP.WriteTimeout, 15*time.Second)
	setDefault(&c.HTTP.IdleTimeout, 60*time.Second)
	setDefault(&c.HTTP.ShutdownTimeout, 10*time.Second)
	c.HTTP.BasePath = strings.TrimRight(c.HTTP.BasePath, "/")

	setDefault(&c.Database.MaxOpenConns, 15)
	setDefault(&c.Database.MaxIdleConns, 5)
	setDefault(&c.Database.ConnMaxLifetime, 30*time.Minute)
	setDefault(&c.Database.Retries, 2)

	setDefault(&c.Geo.Timeout, 2*time.Second)

	setDefault(&c.Stats.DefaultDays, 30)
	setDefault(&c.Stats.MaxDays, 365)

	setDefault(&c.Admin.Timezone, "UTC")

	setDefault(&c.Log.Level, "info")
}

func setDefault[T comparable](dst *T, v T) {
	var zero T
	if *dst == zero {
		*dst = v
	}
}
