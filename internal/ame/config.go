package ame

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ame/internal/aur"
	"ame/internal/logging"
)

// Config holds the settings read from config.yaml and AME_* variables.
type Config struct {
	AURURL       string        `yaml:"aur_url"`
	CacheDir     string        `yaml:"cache_dir"`
	RPCBatchSize int           `yaml:"rpc_batch_size"`
	RPCTimeout   time.Duration `yaml:"rpc_timeout"`
	Elevator     string        `yaml:"elevator"`
	Pacman       string        `yaml:"pacman"`
	Makepkg      string        `yaml:"makepkg"`
	Verbosity    string        `yaml:"verbosity"`
	NoConfirm    bool          `yaml:"noconfirm"`
	SkipReview   bool          `yaml:"skip_review"`
	BuildLogs    bool          `yaml:"build_logs"`
	IdleBuild    bool          `yaml:"idle_build"`
}

func defaultConfig(getenv func(string) string) *Config {
	return &Config{
		AURURL:       aur.DefaultURL,
		CacheDir:     defaultCacheDir(getenv),
		RPCBatchSize: 150,
		RPCTimeout:   20 * time.Second,
		Elevator:     "sudo",
		Pacman:       "pacman",
		Makepkg:      "makepkg",
		Verbosity:    "info",
		BuildLogs:    true,
	}
}

// defaultCacheDir resolves $XDG_CACHE_HOME/ame, falling back to ~/.cache/ame.
func defaultCacheDir(getenv func(string) string) string {
	if xdg := getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(getenv("HOME"), ".cache", appName)
}

// defaultConfigFile resolves $XDG_CONFIG_HOME/ame/config.yaml.
func defaultConfigFile(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.yaml")
	}
	return filepath.Join(getenv("HOME"), ".config", appName, "config.yaml")
}

// loadConfig reads path (a missing file means defaults) and merges AME_*
// overrides from environ.
func loadConfig(path string, getenv func(string) string, environ []string) (*Config, error) {
	cfg := defaultConfig(getenv)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := mergeEnvOverrides(cfg, environ); err != nil {
		return nil, err
	}
	if cfg.RPCBatchSize <= 0 {
		cfg.RPCBatchSize = 150
	}
	if _, err := logging.ParseVerbosity(cfg.Verbosity); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge AME_* env overrides
func mergeEnvOverrides(cfg *Config, environ []string) error {
	for _, env := range environ {
		if !strings.HasPrefix(env, "AME_") {
			continue
		}
		key, val, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		var err error
		switch key {
		case "AME_CACHE_DIR":
			cfg.CacheDir = val
		case "AME_AUR_URL":
			cfg.AURURL = strings.TrimRight(val, "/")
		case "AME_VERBOSITY":
			cfg.Verbosity = val
		case "AME_ELEVATOR":
			cfg.Elevator = val
		case "AME_NOCONFIRM":
			cfg.NoConfirm, err = strconv.ParseBool(val)
		case "AME_SKIP_REVIEW":
			cfg.SkipReview, err = strconv.ParseBool(val)
		case "AME_BUILD_LOGS":
			cfg.BuildLogs, err = strconv.ParseBool(val)
		case "AME_IDLE_BUILD":
			cfg.IdleBuild, err = strconv.ParseBool(val)
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

// Options are the recognised pipeline options.
type Options struct {
	NoConfirm  bool
	AsDeps     bool
	SkipReview bool
	Verbosity  logging.Verbosity
}
