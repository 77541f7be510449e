// Package workspace implements the ephemeral workspace lifecycle (C6):
// create/load/list, the single-active-workspace marker, pause/complete
// transitions and per-triad scratchpad directories.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/events"
	"github.com/marcohefti/triadctl/internal/ids"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/store"
)

const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"

	// AutoPauseReason is stamped on a workspace paused by the session-end
	// hook rather than an explicit user action.
	AutoPauseReason = "Session ended (auto-pause)"
)

// Store persists workspaces under <outRoot>/workspaces/<id>/workspace.json
// and the single "active" marker file in the same directory. events may
// be nil for offline tooling (CLI commands) that don't want activation
// conflicts or auto-pauses mirrored to an event log.
type Store struct {
	outRoot string
	events  *events.Store
}

func NewStore(outRoot string, eventStore *events.Store) *Store {
	return &Store{outRoot: outRoot, events: eventStore}
}

func (s *Store) workspacesDir() string { return filepath.Join(s.outRoot, "workspaces") }
func (s *Store) workspaceDir(id string) string {
	return filepath.Join(s.workspacesDir(), id)
}
func (s *Store) workspaceJSONPath(id string) string {
	return filepath.Join(s.workspaceDir(id), "workspace.json")
}
func (s *Store) activeMarkerPath() string { return filepath.Join(s.workspacesDir(), "active") }
func (s *Store) scratchpadDir(id, triadID string) string {
	return filepath.Join(s.workspaceDir(id), "scratchpads", triadID)
}

// Create makes a new workspace with its own scratchpad directory for
// triadID. Status starts "active"; call SetActive to make it the single
// active workspace the hooks resolve against.
func (s *Store) Create(triadID, title string, brief map[string]any, now time.Time) (schema.WorkspaceV1, error) {
	id := ids.NewWorkspaceID(now, title)
	ws := schema.WorkspaceV1{
		SchemaVersion: schema.WorkspaceSchemaV1,
		ID:            id,
		TriadID:       triadID,
		Title:         title,
		Status:        StatusActive,
		Brief:         brief,
		CurrentTriad:  triadID,
		CreatedAt:     now.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     now.UTC().Format(time.RFC3339Nano),
		ScratchpadDir: filepath.Join("workspaces", id, "scratchpads"),
	}

	path := s.workspaceJSONPath(id)
	if err := store.WriteJSONAtomic(path, ws); err != nil {
		return ws, contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
	}
	if err := os.MkdirAll(s.scratchpadDir(id, triadID), 0o755); err != nil {
		return ws, contract.NewError(contract.CodeIO, err.Error())
	}
	return ws, nil
}

func (s *Store) Load(id string) (schema.WorkspaceV1, error) {
	var ws schema.WorkspaceV1
	path := s.workspaceJSONPath(id)
	found, err := store.ReadJSON(path, &ws)
	if err != nil {
		return ws, contract.NewError(contract.CodeSchema, err.Error()).WithPath(path)
	}
	if !found {
		return ws, contract.NewError(contract.CodeNotFound, fmt.Sprintf("workspace %q not found", id))
	}
	return ws, nil
}

// SetActive tries to become the single active workspace via exclusive
// marker creation (O_CREATE|O_EXCL, the same primitive the store package
// uses for directory locks). On a losing race it emits a
// workspace.activation_conflict event and returns the id that actually
// won instead of erroring.
func (s *Store) SetActive(id string) (string, error) {
	if err := os.MkdirAll(s.workspacesDir(), 0o755); err != nil {
		return "", contract.NewError(contract.CodeIO, err.Error())
	}

	f, err := os.OpenFile(s.activeMarkerPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		_, writeErr := f.WriteString(id)
		closeErr := f.Close()
		if writeErr != nil {
			return "", contract.NewError(contract.CodeIO, writeErr.Error())
		}
		if closeErr != nil {
			return "", contract.NewError(contract.CodeIO, closeErr.Error())
		}
		return id, nil
	}
	if !os.IsExist(err) {
		return "", contract.NewError(contract.CodeIO, err.Error())
	}

	existing, readErr := s.GetActive()
	if readErr != nil {
		return "", readErr
	}
	if existing == id {
		return id, nil
	}

	if s.events != nil {
		_, _ = s.events.Capture(context.Background(), schema.EventV1{
			TriadID:    "system",
			Subject:    "workspace",
			Predicate:  "workspace.activation_conflict",
			Object:     existing,
			ObjectData: map[string]any{"requested": id, "active": existing},
		})
	}
	return existing, nil
}

// GetActive returns the currently active workspace id, or "" if none.
func (s *Store) GetActive() (string, error) {
	raw, err := os.ReadFile(s.activeMarkerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", contract.NewError(contract.CodeIO, err.Error())
	}
	return strings.TrimSpace(string(raw)), nil
}

// ClearActive removes the active marker, but only if it currently points
// at id (a no-op otherwise, so stale callers can't clear someone else's
// activation).
func (s *Store) ClearActive(id string) error {
	current, err := s.GetActive()
	if err != nil {
		return err
	}
	if current != id {
		return nil
	}
	if err := os.Remove(s.activeMarkerPath()); err != nil && !os.IsNotExist(err) {
		return contract.NewError(contract.CodeIO, err.Error())
	}
	return nil
}

func (s *Store) MarkPaused(id, reason string) (schema.WorkspaceV1, error) {
	return s.updateStatus(id, StatusPaused, func(ws *schema.WorkspaceV1) {
		ws.PauseReason = reason
	})
}

func (s *Store) MarkCompleted(id string) (schema.WorkspaceV1, error) {
	ws, err := s.updateStatus(id, StatusCompleted, func(ws *schema.WorkspaceV1) {
		if ws.CurrentTriad != "" {
			ws.CompletedTriads = append(ws.CompletedTriads, ws.CurrentTriad)
			ws.CurrentTriad = ""
		}
	})
	if err != nil {
		return ws, err
	}
	_ = s.ClearActive(id)
	return ws, nil
}

func (s *Store) updateStatus(id, status string, mutate func(*schema.WorkspaceV1)) (schema.WorkspaceV1, error) {
	ws, err := s.Load(id)
	if err != nil {
		return ws, err
	}
	ws.Status = status
	ws.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if mutate != nil {
		mutate(&ws)
	}
	path := s.workspaceJSONPath(id)
	if err := store.WriteJSONAtomic(path, ws); err != nil {
		return ws, contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
	}
	return ws, nil
}

// AutoPauseOnSessionEnd looks up the active workspace and, if it is
// still "active", pauses it with AutoPauseReason and mirrors the action
// to the event log. Returns (nil, nil) when there is no active
// workspace or it is not in "active" status — this is the expected,
// non-error case on most session-end hooks.
func (s *Store) AutoPauseOnSessionEnd() (*schema.WorkspaceV1, error) {
	id, err := s.GetActive()
	if err != nil || id == "" {
		return nil, err
	}
	ws, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	if ws.Status != StatusActive {
		return nil, nil
	}

	updated, err := s.MarkPaused(id, AutoPauseReason)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		_, _ = s.events.Capture(context.Background(), schema.EventV1{
			TriadID:   updated.TriadID,
			SessionID: id,
			Subject:   "workspace",
			Predicate: "auto_paused",
			Object:    AutoPauseReason,
		})
	}
	return &updated, nil
}

// List returns every workspace under outRoot/workspaces, optionally
// filtered by triad id, sorted oldest first.
func (s *Store) List(triadID string) ([]schema.WorkspaceV1, error) {
	entries, err := os.ReadDir(s.workspacesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []schema.WorkspaceV1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var ws schema.WorkspaceV1
		found, err := store.ReadJSON(filepath.Join(s.workspacesDir(), e.Name(), "workspace.json"), &ws)
		if err != nil || !found {
			continue
		}
		if triadID != "" && ws.TriadID != triadID {
			continue
		}
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}
