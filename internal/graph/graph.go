// Package graph implements the per-triad knowledge graph store: discovery,
// an in-process parsed-graph cache, schema validation, backup-then-atomic
// write, auto-repair and search.
package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/retention"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/store"
)

// NodeTypes is the closed set of recognized node types. Matching is
// case-insensitive; ValidateGraph lowercases before checking.
var NodeTypes = map[string]bool{
	"concept": true, "decision": true, "entity": true,
	"finding": true, "task": true, "workflow": true, "uncertainty": true,
}

var triadIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// KeepBackups is how many rotated graph.json.bak.<n> files survive a
// retention sweep after each save.
const KeepBackups = 10

// Store loads, validates and saves per-triad knowledge graphs under
// <outRoot>/knowledge/<triad>/graph.json, caching parsed graphs in
// process so repeated reads during one hook invocation stay cheap.
type Store struct {
	outRoot string

	mu    sync.Mutex
	cache map[string]schema.KnowledgeGraphV1
}

func NewStore(outRoot string) *Store {
	return &Store{outRoot: outRoot, cache: map[string]schema.KnowledgeGraphV1{}}
}

func (s *Store) triadDir(triadID string) string {
	return filepath.Join(s.outRoot, "knowledge", triadID)
}

func (s *Store) graphPath(triadID string) string {
	return filepath.Join(s.triadDir(triadID), "graph.json")
}

func (s *Store) backupsDir(triadID string) string {
	return filepath.Join(s.triadDir(triadID), "backups")
}

// ListTriads scans <outRoot>/knowledge for directories holding a
// graph.json whose name matches the canonical triad id pattern.
func (s *Store) ListTriads() ([]string, error) {
	root := filepath.Join(s.outRoot, "knowledge")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var triads []string
	for _, e := range entries {
		if !e.IsDir() || !triadIDPattern.MatchString(e.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), "graph.json")); err == nil {
			triads = append(triads, e.Name())
		}
	}
	sort.Strings(triads)
	return triads, nil
}

// Refresh invalidates the in-process cache entry for triadID (or the
// whole cache when triadID is empty).
func (s *Store) Refresh(triadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if triadID == "" {
		s.cache = map[string]schema.KnowledgeGraphV1{}
		return
	}
	delete(s.cache, triadID)
}

// Load returns triadID's graph, serving from cache when present. A
// missing graph file is not an error: it returns an empty, valid graph.
func (s *Store) Load(triadID string) (schema.KnowledgeGraphV1, error) {
	if !triadIDPattern.MatchString(triadID) {
		return schema.KnowledgeGraphV1{}, contract.NewError(contract.CodeValidation, fmt.Sprintf("invalid triad id %q", triadID))
	}

	s.mu.Lock()
	if g, ok := s.cache[triadID]; ok {
		s.mu.Unlock()
		return g, nil
	}
	s.mu.Unlock()

	var g schema.KnowledgeGraphV1
	found, err := store.ReadJSON(s.graphPath(triadID), &g)
	if err != nil {
		return schema.KnowledgeGraphV1{}, contract.NewError(contract.CodeSchema, err.Error()).WithPath(s.graphPath(triadID))
	}
	if !found {
		g = schema.KnowledgeGraphV1{SchemaVersion: schema.KnowledgeGraphSchemaV1, TriadID: triadID}
	}

	s.mu.Lock()
	s.cache[triadID] = g
	s.mu.Unlock()
	return g, nil
}

// Save validates g, backs up the existing file, atomic-writes the new
// one under an exclusive lock, and on any post-validation failure
// attempts to restore the freshest backup (see Repair's restore logic).
func (s *Store) Save(triadID string, g schema.KnowledgeGraphV1) error {
	if findings := ValidateGraph(g); len(findings) > 0 {
		return contract.NewError(contract.CodeValidation, findings[0].Message).WithPath(findings[0].FieldPath)
	}

	g.SchemaVersion = schema.KnowledgeGraphSchemaV1
	g.TriadID = triadID
	g.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	path := s.graphPath(triadID)
	lockDir := path + ".lock"

	err := store.WithDirLock(lockDir, 10*time.Second, func() error {
		if err := s.backup(triadID); err != nil {
			return err
		}
		if err := store.WriteJSONAtomic(path, g); err != nil {
			return contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
		}
		return nil
	})
	if err != nil {
		if _, repairErr := s.restoreLatestBackup(triadID); repairErr != nil {
			return fmt.Errorf("save failed (%w) and restore failed: %v", err, repairErr)
		}
		return err
	}

	if _, err := retention.Prune(retention.Opts{
		Dir:     s.backupsDir(triadID),
		Pattern: "graph.json.bak.*",
		KeepN:   KeepBackups,
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[triadID] = g
	s.mu.Unlock()
	return nil
}

func (s *Store) backup(triadID string) error {
	path := s.graphPath(triadID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
	}
	dir := s.backupsDir(triadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return contract.NewError(contract.CodeIO, err.Error()).WithPath(dir)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
	}
	backup := filepath.Join(dir, fmt.Sprintf("graph.json.bak.%d", time.Now().UnixNano()))
	if err := os.WriteFile(backup, raw, 0o644); err != nil {
		return contract.NewError(contract.CodeIO, err.Error()).WithPath(backup)
	}
	return nil
}

// restoreLatestBackup copies the newest backup over graph.json.
func (s *Store) restoreLatestBackup(triadID string) (bool, error) {
	dir := s.backupsDir(triadID)
	matches, err := filepath.Glob(filepath.Join(dir, "graph.json.bak.*"))
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, nil
	}
	sort.Strings(matches)
	latest := matches[len(matches)-1]
	raw, err := os.ReadFile(latest)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(s.graphPath(triadID), raw, 0o644); err != nil {
		return false, err
	}
	s.Refresh(triadID)
	return true, nil
}

// ValidateGraph checks the Node/Edge invariants: required fields, a
// known (case-insensitive) node type, confidence in [0,1], unique node
// ids, and referential integrity of every edge endpoint.
func ValidateGraph(g schema.KnowledgeGraphV1) []contract.Finding {
	var findings []contract.Finding
	seen := map[string]bool{}

	for i, n := range g.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if strings.TrimSpace(n.ID) == "" {
			findings = append(findings, contract.Finding{FieldPath: path + ".id", Message: "node id is required"})
			continue
		}
		path = fmt.Sprintf("nodes[%s]", n.ID)
		if seen[n.ID] {
			findings = append(findings, contract.Finding{FieldPath: path + ".id", Message: "duplicate node id"})
		}
		seen[n.ID] = true
		if strings.TrimSpace(n.Label) == "" {
			findings = append(findings, contract.Finding{FieldPath: path + ".label", Message: "node label is required"})
		}
		if !NodeTypes[strings.ToLower(n.Type)] {
			findings = append(findings, contract.Finding{FieldPath: path + ".type", Message: fmt.Sprintf("unknown node type %q", n.Type)})
		}
		if n.Confidence < 0 || n.Confidence > 1 {
			findings = append(findings, contract.Finding{FieldPath: path + ".confidence", Message: "confidence must be in [0,1]"})
		}
	}

	for i, e := range g.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		if e.ID != "" {
			path = fmt.Sprintf("edges[%s]", e.ID)
		}
		if !seen[e.From] {
			findings = append(findings, contract.Finding{FieldPath: path + ".from", Message: fmt.Sprintf("edge references unknown node %q", e.From)})
		}
		if !seen[e.To] {
			findings = append(findings, contract.Finding{FieldPath: path + ".to", Message: fmt.Sprintf("edge references unknown node %q", e.To)})
		}
	}

	for i := range findings {
		findings[i].Rule = "graph_schema"
		findings[i].Passed = false
	}
	return findings
}

// RepairResult reports what an auto-repair pass changed.
type RepairResult struct {
	OK             bool     `json:"ok"`
	TriadID        string   `json:"triadId"`
	RemovedNodes   []string `json:"removedNodes,omitempty"`
	RemovedEdges   []string `json:"removedEdges,omitempty"`
	BackedUp       bool     `json:"backedUp"`
}

// Repair walks triadID's graph, drops edges pointing at missing nodes
// and nodes with malformed (out-of-range) confidence, and saves the
// result. It always backs up first, via Save's own backup step.
func (s *Store) Repair(triadID string) (RepairResult, error) {
	g, err := s.Load(triadID)
	if err != nil {
		return RepairResult{}, err
	}

	res := RepairResult{OK: true, TriadID: triadID, BackedUp: true}

	keptNodes := g.Nodes[:0:0]
	nodeOK := map[string]bool{}
	for _, n := range g.Nodes {
		if n.Confidence < 0 || n.Confidence > 1 {
			res.RemovedNodes = append(res.RemovedNodes, n.ID)
			continue
		}
		keptNodes = append(keptNodes, n)
		nodeOK[n.ID] = true
	}

	keptEdges := g.Edges[:0:0]
	for _, e := range g.Edges {
		if !nodeOK[e.From] || !nodeOK[e.To] {
			res.RemovedEdges = append(res.RemovedEdges, e.ID)
			continue
		}
		keptEdges = append(keptEdges, e)
	}

	g.Nodes = keptNodes
	g.Edges = keptEdges

	if err := s.Save(triadID, g); err != nil {
		return res, err
	}
	return res, nil
}

// SearchResult is one match returned by Search.
type SearchResult struct {
	Node schema.NodeV1 `json:"node"`
}

// Search matches label then content case-insensitively against query,
// filters by minConfidence, and sorts by confidence descending.
func Search(g schema.KnowledgeGraphV1, query string, minConfidence float64) []schema.NodeV1 {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []schema.NodeV1
	for _, n := range g.Nodes {
		if n.Confidence < minConfidence {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Label), q) && !strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}
