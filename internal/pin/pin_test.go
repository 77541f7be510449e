package pin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcohefti/triadctl/internal/schema"
)

func TestSet_TogglesPinned(t *testing.T) {
	dir := t.TempDir()
	outRoot := filepath.Join(dir, ".triads")
	workspaceID := "workspace-20260215-180012-fix-login-bug"
	workspaceDir := filepath.Join(outRoot, "workspaces", workspaceID)
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	meta := schema.WorkspaceV1{
		SchemaVersion: 1,
		ID:            workspaceID,
		TriadID:       "acme",
		Title:         "fix login bug",
		Status:        "active",
		CreatedAt:     "2026-02-15T18:00:00Z",
		UpdatedAt:     "2026-02-15T18:00:00Z",
	}
	b, _ := json.Marshal(meta)
	if err := os.WriteFile(filepath.Join(workspaceDir, "workspace.json"), b, 0o644); err != nil {
		t.Fatalf("write workspace.json: %v", err)
	}

	res, err := Set(Opts{OutRoot: outRoot, WorkspaceID: workspaceID, Pinned: true})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !res.OK || !res.Pinned {
		t.Fatalf("unexpected res: %+v", res)
	}

	raw, err := os.ReadFile(filepath.Join(workspaceDir, "workspace.json"))
	if err != nil {
		t.Fatalf("read workspace.json: %v", err)
	}
	var got schema.WorkspaceV1
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Pinned {
		t.Fatalf("expected pinned=true")
	}
	if got.Status != "active" {
		t.Fatalf("expected status to survive round-trip, got %q", got.Status)
	}
}
