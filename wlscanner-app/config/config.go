package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/compose-network/wlscanner/server/api"
	"github.com/compose-network/wlscanner/x/generator"
)

// EnvPrefix prefixes every environment override, e.g.
// WLSCANNER_CATALOG_MANIFEST.
const EnvPrefix = "WLSCANNER"

// Config holds the complete application configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log"      yaml:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"  yaml:"catalog"`
	Generate GenerateConfig `mapstructure:"generate" yaml:"generate"`
	API      api.Config     `mapstructure:"api"      yaml:"api"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// CatalogConfig selects the manifest and the collections to compile
type CatalogConfig struct {
	Manifest    string   `mapstructure:"manifest"    yaml:"manifest"`
	Collections []string `mapstructure:"collections" yaml:"collections"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
}

// GenerateConfig controls code generation output
type GenerateConfig struct {
	Output      string   `mapstructure:"output"       yaml:"output"`
	ImportPath  string   `mapstructure:"import_path"  yaml:"import_path"`
	RuntimePath string   `mapstructure:"runtime_path" yaml:"runtime_path"`
	Roles       []string `mapstructure:"roles"        yaml:"roles"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Load reads configuration from the optional file at path and from the
// environment. An empty path uses defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no
// environment.
func Default() *Config {
	apiCfg := api.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info"},
		Catalog: CatalogConfig{
			Manifest: "protocols/catalog.yaml",
		},
		Generate: GenerateConfig{
			Output:      "gen",
			ImportPath:  "github.com/compose-network/wlscanner/gen",
			RuntimePath: generator.DefaultRuntimePath,
			Roles:       []string{string(generator.RoleClient), string(generator.RoleServer)},
		},
		API:     apiCfg,
		Metrics: MetricsConfig{Enabled: true},
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("catalog.manifest", d.Catalog.Manifest)
	v.SetDefault("catalog.collections", []string{})
	v.SetDefault("catalog.concurrency", 0) // GOMAXPROCS

	v.SetDefault("generate.output", d.Generate.Output)
	v.SetDefault("generate.import_path", d.Generate.ImportPath)
	v.SetDefault("generate.runtime_path", d.Generate.RuntimePath)
	v.SetDefault("generate.roles", d.Generate.Roles)

	v.SetDefault("api.listen_addr", d.API.ListenAddr)
	v.SetDefault("api.read_header_timeout", d.API.ReadHeaderTimeout)
	v.SetDefault("api.read_timeout", d.API.ReadTimeout)
	v.SetDefault("api.write_timeout", d.API.WriteTimeout)
	v.SetDefault("api.idle_timeout", d.API.IdleTimeout)
	v.SetDefault("api.shutdown_timeout", d.API.ShutdownTimeout)
	v.SetDefault("api.max_header_bytes", d.API.MaxHeaderBytes)
	v.SetDefault("api.cors", d.API.CORS)
	v.SetDefault("api.compress", d.API.Compress)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.textfile", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateGenerate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.Concurrency < 0 {
		return fmt.Errorf("catalog.concurrency must not be negative, got %d", c.Catalog.Concurrency)
	}
	return nil
}

func (c *Config) validateGenerate() error {
	if strings.TrimSpace(c.Generate.Output) == "" {
		return fmt.Errorf("generate.output must not be empty")
	}
	if _, err := c.GeneratorConfig(); err != nil {
		return err
	}
	return nil
}

// GeneratorConfig converts the generate section into a generator.Config.
func (c *Config) GeneratorConfig() (generator.Config, error) {
	cfg := generator.Config{
		ImportPath:  strings.TrimSpace(c.Generate.ImportPath),
		RuntimePath: strings.TrimSpace(c.Generate.RuntimePath),
	}
	for _, s := range c.Generate.Roles {
		r, err := generator.ParseRole(s)
		if err != nil {
			return generator.Config{}, fmt.Errorf("generate.roles: %w", err)
		}
		cfg.Roles = append(cfg.Roles, r)
	}
	if err := cfg.Validate(); err != nil {
		return generator.Config{}, fmt.Errorf("generate: %w", err)
	}
	return cfg, nil
}
