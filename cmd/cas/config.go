package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds the options cas's REPL and subcommands read at startup.
type Config struct {
	StoreDir  string `json:"store_dir"` //nolint:tagliatelle // snake_case for config file
	NodeLimit uint32 `json:"node_limit,omitempty"`
}

// ConfigFileName is the default project config file name, checked in the
// working directory.
const ConfigFileName = ".cas.json"

// DefaultConfig returns the configuration used when no config file is
// present and no overrides were given.
func DefaultConfig() Config {
	return Config{
		StoreDir:  ".cas-store",
		NodeLimit: 0, // 0 means "use the package default" (cas.DefaultNodeLimit)
	}
}

var errConfigInvalid = errors.New("invalid config")

// LoadConfig loads configuration with the following precedence (highest
// wins): defaults, global user config, project config, CLI overrides.
// The project config is .cas.json in workDir, or the explicit --config
// path when one is given; an explicit path replaces .cas.json, which is
// then not read.
func LoadConfig(workDir, configPath string, cliOverrides Config, hasStoreDirOverride bool, env []string) (Config, error) {
	cfg := DefaultConfig()

	globalCfg, err := loadGlobalConfig(env)
	if err != nil {
		return Config{}, err
	}
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, err := loadProjectConfig(workDir, configPath)
	if err != nil {
		return Config{}, err
	}
	cfg = mergeConfig(cfg, projectCfg)

	if hasStoreDirOverride {
		cfg.StoreDir = cliOverrides.StoreDir
	}
	if cliOverrides.NodeLimit != 0 {
		cfg.NodeLimit = cliOverrides.NodeLimit
	}

	return cfg, nil
}

func getGlobalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "cas", "config.json")
		}
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cas", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "cas", "config.json")
	}

	return ""
}

func loadGlobalConfig(env []string) (Config, error) {
	path := getGlobalConfigPath(env)
	if path == "" {
		return Config{}, nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil {
		return Config{}, err
	}
	if !loaded {
		return Config{}, nil
	}

	return cfg, nil
}

func loadProjectConfig(workDir, configPath string) (Config, error) {
	path := filepath.Join(workDir, ConfigFileName)
	mustExist := false

	if configPath != "" {
		path = configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		mustExist = true
	}

	cfg, loaded, err := loadConfigFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}
	if !loaded {
		return Config{}, nil
	}

	return cfg, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: reading %s: %w", errConfigInvalid, path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w: %s: invalid JSONC: %w", errConfigInvalid, path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("%w: %s: %w", errConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// mergeConfig overlays non-zero fields of override onto base.
func mergeConfig(base, override Config) Config {
	if override.StoreDir != "" {
		base.StoreDir = override.StoreDir
	}
	if override.NodeLimit != 0 {
		base.NodeLimit = override.NodeLimit
	}

	return base
}
