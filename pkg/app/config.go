package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"warehouse/pkg/inventory"
)

// Config holds everything Run needs. Values come from defaults, then the YAML
// file named by --config, then explicitly set flags, then $PORT.
type Config struct {
	Port           int    `yaml:"port"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	SeedScript     string `yaml:"seed_script"`
	DefaultPolicy  string `yaml:"default_policy"`
	SpillRebalance bool   `yaml:"spill_rebalance"`
}

func defaultConfig() Config {
	return Config{
		Port:          8765,
		LogLevel:      "info",
		LogFormat:     "json",
		DefaultPolicy: string(inventory.PolicyEvict),
	}
}

// address converts the port into a binding string; $PORT wins when set.
func (c Config) address() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + strconv.Itoa(c.Port)
}

func (c Config) policy() inventory.Policy {
	p, err := inventory.ParsePolicy(c.DefaultPolicy)
	if err != nil {
		return inventory.PolicyEvict
	}
	return p
}

// validate reports the first setting that cannot be used.
func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if _, err := inventory.ParsePolicy(c.DefaultPolicy); err != nil {
		return errors.Wrapf(err, "default_policy %q", c.DefaultPolicy)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return errors.Errorf("log_format %q must be json or console", c.LogFormat)
	}
	return nil
}

// loadConfigFile overlays the YAML file at path onto cfg. Keys absent from the file keep their value.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// configFlags are the command-line overrides; they are bound to the root command.
type configFlags struct {
	configPath     string
	port           int
	logLevel       string
	logFormat      string
	seedScript     string
	defaultPolicy  string
	spillRebalance bool
}

func (f *configFlags) register(set *pflag.FlagSet) {
	def := defaultConfig()
	set.StringVar(&f.configPath, "config", "", "Path to a YAML config file.")
	set.IntVar(&f.port, "port", def.Port, "Port for the HTTP server.")
	set.StringVar(&f.logLevel, "log-level", def.LogLevel, "Log level: debug, info, warn or error.")
	set.StringVar(&f.logFormat, "log-format", def.LogFormat, "Log encoding: json or console.")
	set.StringVar(&f.seedScript, "seed-script", "", "Operation script applied to the warehouse before serving.")
	set.StringVar(&f.defaultPolicy, "policy", def.DefaultPolicy, "Admission policy when a request names none: evict or spill.")
	set.BoolVar(&f.spillRebalance, "spill-rebalance", false, "Rebalance the sector that receives a spilled product instead of its natural sector.")
}

// resolve builds the effective configuration.
func (f *configFlags) resolve(set *pflag.FlagSet) (Config, error) {
	cfg := defaultConfig()
	if f.configPath != "" {
		if err := loadConfigFile(f.configPath, &cfg); err != nil {
			return Config{}, err
		}
	}
	if set.Changed("port") {
		cfg.Port = f.port
	}
	if set.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if set.Changed("seed-script") {
		cfg.SeedScript = f.seedScript
	}
	if set.Changed("policy") {
		cfg.DefaultPolicy = f.defaultPolicy
	}
	if set.Changed("spill-rebalance") {
		cfg.SpillRebalance = f.spillRebalance
	}
	if err := cfg.validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
