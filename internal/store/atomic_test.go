package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONAtomic_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")

	if err := WriteJSONAtomic(path, map[string]any{"a": 1}); err != nil {
		t.Fatalf("WriteJSONAtomic: %v", err)
	}
	if err := WriteJSONAtomic(path, map[string]any{"a": 2}); err != nil {
		t.Fatalf("WriteJSONAtomic overwrite: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v["a"] != float64(2) {
		t.Fatalf("unexpected value: %#v", v["a"])
	}
}

// TestWriteFileAtomic_CrashAfterTempFileLeavesPriorContentUntouched
// simulates a writer that creates and partially writes the temp file but
// is killed before the final rename: the destination must still hold
// whatever it held before the crashed write was attempted.
func TestWriteFileAtomic_CrashAfterTempFileLeavesPriorContentUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.txt")

	if err := WriteFileAtomic(path, []byte("original")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	// A crashed writer's leftover temp file: created and partially
	// written, but never renamed into place.
	stray := fmt.Sprintf("%s.tmp-%d", path, 1)
	if err := os.WriteFile(stray, []byte("half-writ"), 0o644); err != nil {
		t.Fatalf("write stray temp file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "original" {
		t.Fatalf("destination corrupted by crashed write: %q", string(raw))
	}

	// A subsequent real write must still succeed and fully replace the
	// content, unaffected by the stray temp file.
	if err := WriteFileAtomic(path, []byte("recovered")); err != nil {
		t.Fatalf("WriteFileAtomic after crash: %v", err)
	}
	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile after recovery write: %v", err)
	}
	if string(raw) != "recovered" {
		t.Fatalf("unexpected content after recovery write: %q", string(raw))
	}
}

// TestWriteJSONAtomic_CrashAfterTempFileLeavesPriorContentUntouched is
// the WriteJSONAtomic counterpart: a leftover, never-renamed temp file
// from a killed writer must not disturb the previously saved JSON.
func TestWriteJSONAtomic_CrashAfterTempFileLeavesPriorContentUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")

	if err := WriteJSONAtomic(path, map[string]any{"a": 1}); err != nil {
		t.Fatalf("WriteJSONAtomic: %v", err)
	}

	stray := fmt.Sprintf("%s.tmp-%d", path, 1)
	if err := os.WriteFile(stray, []byte(`{"a":`), 0o644); err != nil {
		t.Fatalf("write stray temp file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("destination corrupted by crashed write, invalid json: %s", raw)
	}
	if v["a"] != float64(1) {
		t.Fatalf("destination corrupted by crashed write: %#v", v["a"])
	}

	if err := WriteJSONAtomic(path, map[string]any{"a": 2}); err != nil {
		t.Fatalf("WriteJSONAtomic after crash: %v", err)
	}
	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile after recovery write: %v", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("Unmarshal after recovery write: %v", err)
	}
	if v["a"] != float64(2) {
		t.Fatalf("unexpected value after recovery write: %#v", v["a"])
	}
}

func TestWriteFileAtomic_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.txt")

	if err := WriteFileAtomic(path, []byte("a")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("b")); err != nil {
		t.Fatalf("WriteFileAtomic overwrite: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "b" {
		t.Fatalf("unexpected content: %q", string(raw))
	}
}
