package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the port the HTTP check API binds to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// StoreBackend selects where the blocklists live.
	StoreBackend string `koanf:"store_backend" validate:"required,oneof=sql bolt redis"`

	// DatabaseURL is the connection string for the sql backend.
	DatabaseURL string `koanf:"database_url" validate:"required_if=StoreBackend sql"`

	// LinksTable and HashesTable name the blocklist tables in the sql backend.
	LinksTable  string `koanf:"links_table" validate:"omitempty,table_name"`
	HashesTable string `koanf:"hashes_table" validate:"omitempty,table_name"`

	// BoltPath is the database file for the bolt backend.
	BoltPath string `koanf:"bolt_path" validate:"required_if=StoreBackend bolt"`

	// RedisAddr is the host:port for the redis backend.
	RedisAddr string `koanf:"redis_addr" validate:"required_if=StoreBackend redis"`

	// MediaBaseURL is the homeserver base URL used to download uploaded
	// content for hashing, e.g. "https://matrix.example.org".
	MediaBaseURL string `koanf:"media_base_url" validate:"required,url"`

	// RefreshIntervalSeconds bounds both the link index rebuild period and
	// the availability probe TTL.
	RefreshIntervalSeconds uint `koanf:"refresh_interval_seconds" validate:"required,gte=1"`

	// FetchTimeoutSeconds bounds each media content download.
	FetchTimeoutSeconds uint `koanf:"fetch_timeout_seconds" validate:"required,gte=1"`

	// HashCacheSize caps the digest decision cache. 0 disables it.
	HashCacheSize int `koanf:"hash_cache_size" validate:"gte=0"`

	// LinksSeedFile and HashesSeedFile optionally seed the bolt backend
	// from newline-delimited list files at startup.
	LinksSeedFile  string `koanf:"links_seed_file"`
	HashesSeedFile string `koanf:"hashes_seed_file"`
}

// RefreshInterval returns the configured refresh period as a duration.
func (c *AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// FetchTimeout returns the configured media download bound as a duration.
func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// DEFAULT_APP_CONFIG defines the default application configuration. The
// table names match the columns the IWF-style feeds are loaded into.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                    "prod",
	LogLevel:               "info",
	Port:                   8008,
	StoreBackend:           "bolt",
	LinksTable:             "blocked_links",
	HashesTable:            "blocked_md5",
	BoltPath:               "/var/lib/badlist/badlist.db",
	MediaBaseURL:           "http://localhost:8008",
	RefreshIntervalSeconds: 600,
	FetchTimeoutSeconds:    30,
	HashCacheSize:          4096,
}

// validTableName restricts SQL table identifiers to a safe charset, since
// table names are interpolated into queries rather than bound.
func validTableName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// envLoader loads environment variables with the prefix "BADLIST_",
// lower-casing keys and stripping the prefix. Var so tests can stub it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "BADLIST_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "BADLIST_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided Koanf
// instance using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "table_name" validation.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("table_name", validTableName)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
