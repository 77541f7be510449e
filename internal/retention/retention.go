// Package retention implements rotated-backup and ephemeral-directory
// pruning shared by the event store (C2), graph store (C3) and workspace
// manager (C6). Both event and graph backups are numbered files in a flat
// directory (events.jsonl.bak.<n>, graph.json.bak.<n>); Prune keeps the
// newest KeepN and deletes the rest, optionally also enforcing a max age.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type BackupInfo struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"modTime"`
	Bytes   int64     `json:"bytes"`
}

type Result struct {
	OK          bool         `json:"ok"`
	Dir         string       `json:"dir"`
	DryRun      bool         `json:"dryRun"`
	Deleted     []BackupInfo `json:"deleted,omitempty"`
	Kept        []BackupInfo `json:"kept,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
	TotalBefore int64        `json:"totalBeforeBytes"`
	TotalAfter  int64        `json:"totalAfterBytes"`
}

type Opts struct {
	Dir        string
	Pattern    string // glob pattern relative to Dir, e.g. "events.jsonl.bak.*"
	KeepN      int    // always keep the newest KeepN matches regardless of age
	MaxAgeDays int    // 0 disables age-based pruning beyond KeepN
	DryRun     bool
	Now        time.Time
}

// Prune keeps the newest Opts.KeepN files matching Opts.Pattern and removes
// the rest. When MaxAgeDays > 0, kept files older than the cutoff are also
// removed (age pruning never removes more than leaves zero backups beyond
// KeepN=0's empty set).
func Prune(opts Opts) (Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	keepN := opts.KeepN
	if keepN < 0 {
		keepN = 0
	}

	matches, err := filepath.Glob(filepath.Join(opts.Dir, opts.Pattern))
	if err != nil {
		return Result{}, fmt.Errorf("invalid retention pattern %q: %w", opts.Pattern, err)
	}

	var files []BackupInfo
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, BackupInfo{Path: m, ModTime: info.ModTime(), Bytes: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.After(files[j].ModTime) })

	var total int64
	for _, f := range files {
		total += f.Bytes
	}
	res := Result{OK: true, Dir: opts.Dir, DryRun: opts.DryRun, TotalBefore: total, TotalAfter: total}

	var cutoff time.Time
	if opts.MaxAgeDays > 0 {
		cutoff = now.Add(-time.Duration(opts.MaxAgeDays) * 24 * time.Hour)
	}

	for i, f := range files {
		keep := i < keepN
		if keep && !cutoff.IsZero() && f.ModTime.Before(cutoff) {
			keep = false
		}
		if keep {
			res.Kept = append(res.Kept, f)
			continue
		}
		res.Deleted = append(res.Deleted, f)
		res.TotalAfter -= f.Bytes
		if !opts.DryRun {
			if err := os.Remove(f.Path); err != nil {
				res.Errors = append(res.Errors, err.Error())
			}
		}
	}
	return res, nil
}

// DirSize walks root and sums the size of every regular file beneath it.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
