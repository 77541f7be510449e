package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Merged struct {
	OutRoot string

	// Source is informational for operator UX/debugging.
	Source string
}

func DefaultGlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".triadctl", "config.json"), nil
}

type GlobalConfigV1 struct {
	SchemaVersion int                `json:"schemaVersion" yaml:"schemaVersion"`
	OutRoot       string             `json:"outRoot,omitempty" yaml:"outRoot,omitempty"`
	Redaction     *RedactionConfigV1 `json:"redaction,omitempty" yaml:"redaction,omitempty"`
}

// LoadMerged resolves outRoot precedence:
// 1) CLI flag
// 2) env var (TRIADCTL_OUT_ROOT)
// 3) project config (triad.config.json)
// 4) global config (~/.triadctl/config.json)
// 5) default (.triads)
func LoadMerged(flagOutRoot string) (Merged, error) {
	projectCfg, hasProjectCfg, err := loadProject(DefaultProjectConfigPath)
	if err != nil {
		return Merged{}, err
	}
	globalPath, err := DefaultGlobalConfigPath()
	if err != nil {
		return Merged{}, err
	}
	globalCfg, hasGlobalCfg, err := loadGlobal(globalPath)
	if err != nil {
		return Merged{}, err
	}

	res := Merged{OutRoot: DefaultOutRoot, Source: "default"}
	if strings.TrimSpace(flagOutRoot) != "" {
		res.OutRoot = flagOutRoot
		res.Source = "flag"
	} else if v := strings.TrimSpace(os.Getenv("TRIADCTL_OUT_ROOT")); v != "" {
		res.OutRoot = v
		res.Source = "env:TRIADCTL_OUT_ROOT"
	} else if hasProjectCfg {
		res.OutRoot = projectCfg.OutRoot
		res.Source = DefaultProjectConfigPath
	} else if hasGlobalCfg && strings.TrimSpace(globalCfg.OutRoot) != "" {
		res.OutRoot = globalCfg.OutRoot
		res.Source = globalPath
	}
	return res, nil
}

func loadProject(path string) (ProjectConfigV1, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectConfigV1{}, false, nil
		}
		return ProjectConfigV1{}, false, err
	}
	var cfg ProjectConfigV1
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ProjectConfigV1{}, false, err
	}
	if cfg.SchemaVersion != ProjectConfigSchemaV1 {
		return ProjectConfigV1{}, false, fmt.Errorf("project config unsupported schemaVersion=%d", cfg.SchemaVersion)
	}
	if strings.TrimSpace(cfg.OutRoot) == "" {
		return ProjectConfigV1{}, false, fmt.Errorf("project config outRoot is empty")
	}
	return cfg, true, nil
}

// loadGlobal reads path (config.json) if present, falling back to a
// config.yaml/config.yml sibling in the same directory — some operators
// prefer hand-editing YAML for the redaction extraRules list.
func loadGlobal(path string) (GlobalConfigV1, bool, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var cfg GlobalConfigV1
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return GlobalConfigV1{}, false, err
		}
		if cfg.SchemaVersion != 1 {
			return GlobalConfigV1{}, false, fmt.Errorf("global config unsupported schemaVersion=%d", cfg.SchemaVersion)
		}
		return cfg, true, nil
	}
	if !os.IsNotExist(err) {
		return GlobalConfigV1{}, false, err
	}

	for _, ext := range []string{".yaml", ".yml"} {
		yamlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ext
		raw, err := os.ReadFile(yamlPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return GlobalConfigV1{}, false, err
		}
		var cfg GlobalConfigV1
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return GlobalConfigV1{}, false, fmt.Errorf("invalid global config yaml: %w", err)
		}
		if cfg.SchemaVersion != 1 {
			return GlobalConfigV1{}, false, fmt.Errorf("global config unsupported schemaVersion=%d", cfg.SchemaVersion)
		}
		return cfg, true, nil
	}
	return GlobalConfigV1{}, false, nil
}
