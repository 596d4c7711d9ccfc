// Package loader reads bundler stats manifests and flattens them into the
// row-ordered node lists the store consumes.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/bundlescope/pkg/debug"
	"github.com/vanderheijden86/bundlescope/pkg/model"
)

// PreferredManifestNames defines the priority order for locating a stats
// manifest in a directory.
var PreferredManifestNames = []string{"stats.json", "bundle-stats.json", "webpack-stats.json"}

// Module is one entry of the stats manifest tree.
type Module struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Size     int64    `json:"size,omitempty"`
	Children []Module `json:"children,omitempty"`
}

// Manifest is the decoded stats file.
type Manifest struct {
	Version int      `json:"version,omitempty"`
	Modules []Module `json:"modules"`
}

// FindManifestPath locates a stats manifest in the given directory,
// preferring the well-known names and skipping backup artifacts.
func FindManifestPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") {
			continue
		}
		candidates = append(candidates, name)
	}

	for _, preferred := range PreferredManifestNames {
		for _, name := range candidates {
			if name == preferred {
				return filepath.Join(dir, name), nil
			}
		}
	}

	return "", fmt.Errorf("no stats manifest found in %s", dir)
}

// Load reads and decodes a stats manifest. A manifest may be either an
// object with a "modules" array or a bare top-level array of modules.
func Load(path string) (*Manifest, error) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	debug.LogTiming("load "+filepath.Base(path), time.Since(start))
	return m, nil
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("manifest is empty")
	}

	if strings.HasPrefix(trimmed, "[") {
		var modules []Module
		if err := json.Unmarshal(data, &modules); err != nil {
			return nil, fmt.Errorf("invalid manifest: %w", err)
		}
		return &Manifest{Modules: modules}, nil
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Nodes flattens the whole manifest into one row-ordered node list,
// suitable for store.Init. Subtrees appear in manifest order, each in
// pre-order.
func Nodes(m *Manifest) []*model.Node {
	var out []*model.Node
	for _, batch := range Batches(m) {
		out = append(out, batch...)
	}
	return out
}

// Batches flattens the manifest into one node slice per root subtree, the
// shape store.AddModules consumes (first element of each batch is the
// subtree root).
func Batches(m *Manifest) [][]*model.Node {
	if m == nil {
		return nil
	}
	batches := make([][]*model.Node, 0, len(m.Modules))
	for _, root := range m.Modules {
		var batch []*model.Node
		flatten(root, "", "", 0, &batch)
		batches = append(batches, batch)
	}
	return batches
}

// flatten converts a module subtree to nodes in pre-order. Initial view
// state: roots are visible and expanded, their children visible but
// collapsed, deeper levels hidden until an ancestor is expanded.
func flatten(mod Module, parentID, parentPath string, depth int, out *[]*model.Node) {
	id := mod.ID
	if id == "" {
		id = joinPath(parentPath, mod.Name)
	}

	leaf := len(mod.Children) == 0

	size := mod.Size
	if size == 0 {
		for _, child := range mod.Children {
			size += subtreeSize(child)
		}
	}

	n := &model.Node{
		ID:       id,
		ParentID: parentID,
		Name:     mod.Name,
		Size:     size,
		Leaf:     leaf,
		Visible:  depth < 2,
		Expanded: depth < 1 && !leaf,
	}
	*out = append(*out, n)

	path := joinPath(parentPath, mod.Name)
	for _, child := range mod.Children {
		flatten(child, id, path, depth+1, out)
	}
}

// subtreeSize totals a module's own size plus its descendants'.
func subtreeSize(mod Module) int64 {
	size := mod.Size
	for _, child := range mod.Children {
		size += subtreeSize(child)
	}
	return size
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// LoadAll loads several manifests concurrently and returns their batches
// in the input order. A failed manifest fails the whole load; partial
// results are not returned.
func LoadAll(ctx context.Context, paths []string) ([][]*model.Node, error) {
	results := make([][][]*model.Node, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			m, err := Load(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			results[i] = Batches(m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var batches [][]*model.Node
	for _, r := range results {
		batches = append(batches, r...)
	}
	return batches, nil
}
