// Package config resolves bufdev settings from files, environment and flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Count        int              `json:"count"`
	Capacity     int              `json:"capacity"`
	Base         int              `json:"base"`
	MaxInstances int              `json:"max_instances,omitempty"`
	SingleOpen   bool             `json:"single_open"`
	LogLevel     string           `json:"log_level,omitempty"`
	Instances    []InstanceConfig `json:"instances,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// InstanceConfig overrides settings for one instance.
type InstanceConfig struct {
	Capacity int    `json:"capacity,omitempty"`
	Perm     string `json:"perm,omitempty"`
	Serial   string `json:"serial,omitempty"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global   string // Path to global config if loaded, empty otherwise
	Project  string // Path to project or explicit config if loaded, empty otherwise
	Env      bool   // At least one BUFDEV_* variable was applied
	Override bool   // At least one CLI flag overrode a value
}

// DefaultConfig returns the default configuration: one instance table of
// bufdev.DefaultMaxInstances buffers, each bufdev.DefaultCapacity bytes.
func DefaultConfig() Config {
	return Config{
		Count:    bufdev.DefaultMaxInstances,
		Capacity: bufdev.DefaultCapacity,
		LogLevel: "warn",
	}
}

// FileName is the project config file name.
const FileName = ".bufdev.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BUFDEV"

// fileConfig is the on-disk shape. Pointers distinguish "absent" from an
// explicit zero so a later layer can turn single_open off again.
type fileConfig struct {
	Count        *int             `json:"count"`
	Capacity     *int             `json:"capacity"`
	Base         *int             `json:"base"`
	MaxInstances *int             `json:"max_instances"`
	SingleOpen   *bool            `json:"single_open"`
	LogLevel     *string          `json:"log_level"`
	Instances    []InstanceConfig `json:"instances"`
}

// envConfig holds the BUFDEV_* overrides.
type envConfig struct {
	Count        *int    `envconfig:"COUNT"`
	Capacity     *int    `envconfig:"CAPACITY"`
	Base         *int    `envconfig:"BASE"`
	MaxInstances *int    `envconfig:"MAX_INSTANCES"`
	SingleOpen   *bool   `envconfig:"SINGLE_OPEN"`
	LogLevel     *string `envconfig:"LOG_LEVEL"`
}

// Overrides are CLI flag values. Nil fields were not given.
type Overrides struct {
	Count      *int
	Capacity   *int
	Base       *int
	SingleOpen *bool
	LogLevel   *string
}

// GlobalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/bufdev/config.json if set, otherwise
// ~/.config/bufdev/config.json. Returns empty string if home directory cannot
// be determined.
func GlobalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "bufdev", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "bufdev", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Overrides       Overrides         // CLI flag values
	Env             map[string]string // environment for the global config path and BUFDEV_*; nil means the process environment
	SkipProcessEnv  bool              // with a nil Env, do not read BUFDEV_* from the process environment
	Logger          *zap.Logger
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/bufdev/config.json or $XDG_CONFIG_HOME/bufdev/config.json)
// 3. Project config file at default location (.bufdev.json, if exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. BUFDEV_* variables from input.Env, or from the process when Env is nil
// 6. CLI overrides.
func Load(input LoadInput) (Config, error) {
	log := input.Logger
	if log == nil {
		log = zap.NewNop()
	}

	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	if globalPath := GlobalPath(input.Env); globalPath != "" {
		globalCfg, loaded, err := loadFile(globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = mergeFile(cfg, globalCfg)
			cfg.Sources.Global = globalPath
			log.Debug("loaded global config", zap.String("path", globalPath))
		}
	}

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	if projectPath != "" {
		cfg = mergeFile(cfg, projectCfg)
		cfg.Sources.Project = projectPath
		log.Debug("loaded project config", zap.String("path", projectPath))
	}

	if input.Env != nil || !input.SkipProcessEnv {
		env, err := loadEnv(input.Env)
		if err != nil {
			return Config{}, err
		}

		cfg = mergeEnv(cfg, env)
	}

	cfg = applyOverrides(cfg, input.Overrides)

	err = validate(cfg)
	if err != nil {
		log.Warn("invalid configuration", zap.Error(err))

		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	return cfg, nil
}

// loadProject loads the project config file (.bufdev.json) or an explicit
// config file. Returns the config and the path if loaded.
func loadProject(workDir, configPath string) (fileConfig, string, error) {
	if configPath == "" {
		path := filepath.Join(workDir, FileName)

		cfg, loaded, err := loadFile(path, false)
		if err != nil || !loaded {
			return fileConfig{}, "", err
		}

		return cfg, path, nil
	}

	path := configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	// Check existence first to provide a clear "not found" error
	_, statErr := os.Stat(path)
	if statErr != nil {
		return fileConfig{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}

	cfg, _, err := loadFile(path, true)
	if err != nil {
		return fileConfig{}, "", err
	}

	return cfg, path, nil
}

// loadFile loads a config file. If mustExist is false, a missing file
// returns a zero config and loaded=false.
func loadFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return fileConfig{}, false, nil
		}

		return fileConfig{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, parseErr := parse(data)
	if parseErr != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parse(data []byte) (fileConfig, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg fileConfig

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return cfg, nil
}

func mergeFile(base Config, overlay fileConfig) Config {
	if overlay.Count != nil {
		base.Count = *overlay.Count
	}

	if overlay.Capacity != nil {
		base.Capacity = *overlay.Capacity
	}

	if overlay.Base != nil {
		base.Base = *overlay.Base
	}

	if overlay.MaxInstances != nil {
		base.MaxInstances = *overlay.MaxInstances
	}

	if overlay.SingleOpen != nil {
		base.SingleOpen = *overlay.SingleOpen
	}

	if overlay.LogLevel != nil {
		base.LogLevel = *overlay.LogLevel
	}

	if overlay.Instances != nil {
		base.Instances = overlay.Instances
	}

	return base
}

func mergeEnv(base Config, env envConfig) Config {
	merged := mergeFile(base, fileConfig{
		Count:        env.Count,
		Capacity:     env.Capacity,
		Base:         env.Base,
		MaxInstances: env.MaxInstances,
		SingleOpen:   env.SingleOpen,
		LogLevel:     env.LogLevel,
	})

	merged.Sources.Env = env != envConfig{}

	return merged
}

func applyOverrides(base Config, o Overrides) Config {
	merged := mergeFile(base, fileConfig{
		Count:      o.Count,
		Capacity:   o.Capacity,
		Base:       o.Base,
		SingleOpen: o.SingleOpen,
		LogLevel:   o.LogLevel,
	})

	merged.Sources.Override = o != Overrides{}

	return merged
}

func validate(cfg Config) error {
	if cfg.Count < 1 {
		return fmt.Errorf("%w: got %d", ErrCountInvalid, cfg.Count)
	}

	if cfg.Capacity < 0 {
		return fmt.Errorf("%w: got %d", ErrCapacityInvalid, cfg.Capacity)
	}

	if cfg.Base < 0 {
		return fmt.Errorf("%w: got %d", ErrBaseInvalid, cfg.Base)
	}

	if len(cfg.Instances) != 0 && len(cfg.Instances) != cfg.Count {
		return fmt.Errorf("%w: %d entries for count %d", ErrInstancesMismatch, len(cfg.Instances), cfg.Count)
	}

	for idx, inst := range cfg.Instances {
		if inst.Perm == "" {
			continue
		}

		_, err := bufdev.ParseMode(inst.Perm)
		if err != nil {
			return fmt.Errorf("instances[%d]: %w: got %q", idx, ErrPermInvalid, inst.Perm)
		}
	}

	return nil
}

// Options converts the configuration to registry options. Range checks the
// registry owns (max instances, capacity ceiling) are left to bufdev.New.
func (c Config) Options() bufdev.Options {
	opts := bufdev.Options{
		Count:        c.Count,
		Capacity:     c.Capacity,
		Base:         c.Base,
		MaxInstances: c.MaxInstances,
		SingleOpen:   c.SingleOpen,
	}

	for _, inst := range c.Instances {
		var perm bufdev.Mode
		if inst.Perm != "" {
			// Already validated by Load.
			perm, _ = bufdev.ParseMode(inst.Perm)
		}

		opts.Instances = append(opts.Instances, bufdev.InstanceOptions{
			Capacity:   inst.Capacity,
			Permission: perm,
			Serial:     inst.Serial,
		})
	}

	return opts
}
