package sim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"
)

// iniConfig is the layout of a git-config style run file. The seed lives in
// a [run] section since gcfg has no top-level variables.
type iniConfig struct {
	Run struct {
		Seed int64 `gcfg:"seed"`
	}
	System SystemConfig
	Method MethodConfig
	End    EndConfig
	Output OutputConfig
}

// LoadConfigFile reads a run configuration on top of DefaultConfig, so that
// unset values keep their defaults. Files ending in .cfg or .ini use
// git-config syntax; anything else is parsed as YAML with unknown keys
// rejected.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cfg", ".ini":
		ini := iniConfig{System: cfg.System, Method: cfg.Method, End: cfg.End, Output: cfg.Output}
		ini.Run.Seed = cfg.Seed
		if err := gcfg.ReadFileInto(&ini, path); err != nil {
			return Config{}, fmt.Errorf("parsing run config %s: %w", path, err)
		}
		cfg = Config{Seed: ini.Run.Seed, System: ini.System, Method: ini.Method, End: ini.End, Output: ini.Output}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading run config: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing run config %s: %w", path, err)
		}
	}
	return cfg, nil
}
