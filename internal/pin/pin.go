// Package pin marks a workspace as protected from any future retention
// sweep. Pinning is a workspace-level flag set on workspace.json; it does
// not affect the workspace's status (active/paused/completed).
package pin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/store"
)

type Result struct {
	OK          bool   `json:"ok"`
	WorkspaceID string `json:"workspaceId"`
	Pinned      bool   `json:"pinned"`
	Path        string `json:"path"`
}

type Opts struct {
	OutRoot     string
	WorkspaceID string
	Pinned      bool
}

func Set(opts Opts) (Result, error) {
	outRoot := strings.TrimSpace(opts.OutRoot)
	if outRoot == "" {
		outRoot = ".triads"
	}
	workspaceID := strings.TrimSpace(opts.WorkspaceID)
	if workspaceID == "" {
		return Result{}, fmt.Errorf("missing --workspace-id")
	}

	workspacesDir := filepath.Join(outRoot, "workspaces")
	workspaceDir := filepath.Join(workspacesDir, workspaceID)
	workspaceJSONPath := filepath.Join(workspaceDir, "workspace.json")

	raw, err := os.ReadFile(workspaceJSONPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("missing workspace.json for workspaceId=%s", workspaceID)
		}
		return Result{}, err
	}

	// Containment guard against symlink traversal.
	workspacesEval, err := filepath.EvalSymlinks(workspacesDir)
	if err != nil {
		return Result{}, err
	}
	workspaceEval, err := filepath.EvalSymlinks(workspaceDir)
	if err != nil {
		return Result{}, err
	}
	workspacesEval = filepath.Clean(workspacesEval)
	workspaceEval = filepath.Clean(workspaceEval)
	sep := string(os.PathSeparator)
	if !strings.HasPrefix(workspaceEval, workspacesEval+sep) && workspaceEval != workspacesEval {
		return Result{}, fmt.Errorf("workspace directory escapes outRoot (symlink traversal)")
	}

	var meta schema.WorkspaceV1
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Result{}, fmt.Errorf("invalid workspace.json: %w", err)
	}
	if meta.SchemaVersion != schema.WorkspaceSchemaV1 {
		return Result{}, fmt.Errorf("unsupported workspace.json schemaVersion=%d", meta.SchemaVersion)
	}
	if meta.ID != workspaceID {
		return Result{}, fmt.Errorf("workspace.json mismatch: expected id=%s", workspaceID)
	}

	meta.Pinned = opts.Pinned
	if err := store.WriteJSONAtomic(workspaceJSONPath, meta); err != nil {
		return Result{}, err
	}

	return Result{OK: true, WorkspaceID: workspaceID, Pinned: meta.Pinned, Path: workspaceJSONPath}, nil
}
