package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcohefti/triadctl/internal/store"
)

const (
	ProjectConfigSchemaV1    = 1
	DefaultProjectConfigPath = "triad.config.json"
	DefaultOutRoot           = ".triads"
)

// ProjectConfigV1 is the per-repo config created by `triadctl init`. It
// carries the output root, optional redaction rules, and the triad_system
// block mirroring the settings.json hook-registration surface.
type ProjectConfigV1 struct {
	SchemaVersion int                  `json:"schemaVersion"`
	OutRoot       string               `json:"outRoot"`
	Redaction     *RedactionConfigV1   `json:"redaction,omitempty"`
	TriadSystem   *TriadSystemConfigV1 `json:"triad_system,omitempty"`
}

type InitResult struct {
	OK           bool   `json:"ok"`
	ConfigPath   string `json:"configPath"`
	OutRoot      string `json:"outRoot"`
	Created      bool   `json:"created"`
	OutRootReady bool   `json:"outRootReady"`
}

func InitProject(configPath string, outRoot string) (*InitResult, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = DefaultProjectConfigPath
	}
	if strings.TrimSpace(outRoot) == "" {
		outRoot = DefaultOutRoot
	}

	if err := os.MkdirAll(filepath.Join(outRoot, "workspaces"), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(outRoot, "knowledge"), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(outRoot, "tmp"), 0o755); err != nil {
		return nil, err
	}

	created := false
	if _, err := os.Stat(configPath); err == nil {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		var existing ProjectConfigV1
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, err
		}
		if existing.SchemaVersion != ProjectConfigSchemaV1 {
			return nil, fmt.Errorf("existing config has unsupported schemaVersion=%d", existing.SchemaVersion)
		}
		if strings.TrimSpace(existing.OutRoot) == "" {
			return nil, fmt.Errorf("existing config outRoot is empty")
		}
		if existing.OutRoot != outRoot {
			return nil, fmt.Errorf("existing config outRoot=%q does not match requested outRoot=%q", existing.OutRoot, outRoot)
		}
	} else if os.IsNotExist(err) {
		cfg := ProjectConfigV1{
			SchemaVersion: ProjectConfigSchemaV1,
			OutRoot:       outRoot,
			TriadSystem:   DefaultTriadSystemConfigV1(),
		}
		if err := store.WriteJSONAtomic(configPath, cfg); err != nil {
			return nil, err
		}
		created = true
	} else if err != nil {
		return nil, err
	}

	return &InitResult{
		OK:           true,
		ConfigPath:   configPath,
		OutRoot:      outRoot,
		Created:      created,
		OutRootReady: true,
	}, nil
}
