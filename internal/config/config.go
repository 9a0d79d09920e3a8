// Package config loads mydashboard settings from defaults, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// URLEnv and KeyEnv are the variable names the original dashboard used for
	// the backend project URL and its anon API key.
	URLEnv = "SUPABASE_URL"
	KeyEnv = "SUPABASE_KEY"
	// EnvPrefix prefixes every other setting, e.g. MYDASHBOARD_LOG_LEVEL.
	EnvPrefix = "MYDASHBOARD_"
	// DefaultHomeDir holds the log file when no path is configured.
	DefaultHomeDir = ".mydashboard"
)

// Config holds all application configuration.
type Config struct {
	Backend BackendConfig `koanf:"backend"`
	Schema  SchemaConfig  `koanf:"schema"`
	Log     LogConfig     `koanf:"log"`
	Trace   TraceConfig   `koanf:"trace"`
}

// BackendConfig points at the hosted backend.
type BackendConfig struct {
	URL     string        `koanf:"url" validate:"required,url"`
	APIKey  string        `koanf:"api_key" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SchemaConfig names the columns of the two table collections. Deployments
// created by the original dashboard use nome / user_id / dados_json.
type SchemaConfig struct {
	NameColumn  string `koanf:"name_column" validate:"required"`
	OwnerColumn string `koanf:"owner_column" validate:"required"`
	DataColumn  string `koanf:"data_column" validate:"required"`
}

// LogConfig controls the log file. The TUI owns the terminal, so logs never
// go to stdout while it runs.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	File  string `koanf:"file"`
	JSON  bool   `koanf:"json"`
}

// TraceConfig enables OTLP export when Endpoint is set, either as host:port
// or as a URL such as http://collector:4318.
type TraceConfig struct {
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name" validate:"required"`
	Insecure    bool   `koanf:"insecure"`
}

// Default returns the configuration used before any source is applied.
func Default() *Config {
	logFile := "mydashboard.log"
	if home, err := os.UserHomeDir(); err == nil {
		logFile = filepath.Join(home, DefaultHomeDir, "mydashboard.log")
	}
	return &Config{
		Backend: BackendConfig{
			Timeout: 15 * time.Second,
		},
		Schema: SchemaConfig{
			NameColumn:  "name",
			OwnerColumn: "owner_id",
			DataColumn:  "data",
		},
		Log: LogConfig{
			Level: "info",
			File:  logFile,
		},
		Trace: TraceConfig{
			ServiceName: "mydashboard",
			Insecure:    true,
		},
	}
}

// envKeys maps the variables without the MYDASHBOARD_ prefix to config paths.
// OTEL_EXPORTER_OTLP_ENDPOINT is honored for parity with other OTel clients.
var envKeys = map[string]string{
	URLEnv:                        "backend.url",
	KeyEnv:                        "backend.api_key",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "trace.endpoint",
	"OTEL_SERVICE_NAME":           "trace.service_name",
}

// envToPath converts environment variable names to koanf paths.
// MYDASHBOARD_SCHEMA_NAME_COLUMN -> schema.name_column. Unknown variables map
// to "" and are skipped by the provider.
func envToPath(key string) string {
	if p, ok := envKeys[key]; ok {
		return p
	}
	if !strings.HasPrefix(key, EnvPrefix) {
		return ""
	}
	parts := strings.FieldsFunc(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), func(r rune) bool {
		return r == '_'
	})
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "." + strings.Join(parts[1:], "_")
}

// Load reads defaults, then each existing dotenv file (missing files are
// skipped; variables already in the environment win), then the environment.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			return envToPath(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and reports every offending field.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	if c.Backend.URL == "" || c.Backend.APIKey == "" {
		msgs = append(msgs, fmt.Sprintf("set %s and %s", URLEnv, KeyEnv))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
}

// String returns a representation with the API key masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Backend: %s, Key: *** (masked) ***, Schema: %s/%s/%s, Log: %s}",
		c.Backend.URL, c.Schema.NameColumn, c.Schema.OwnerColumn, c.Schema.DataColumn, c.Log.Level)
}
