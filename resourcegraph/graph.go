/*
	resourcegraph package implements a deduplicated, URL-keyed collection
	of resource nodes and the recursive crawl that populates it. Nodes
	are keyed by the URL exactly as first referenced; a URL already
	present in the graph is never fetched again, which terminates cyclic
	and mutually-referencing pages naturally. Iteration always runs in
	ascending lexicographic key order, independent of discovery order.
*/

package resourcegraph

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/mycok/uArchive/resource"
	"github.com/mycok/uArchive/rewrite"
)

// Static and compile-time check to ensure Graph implements
// rewrite.NodeLookup interface.
var _ rewrite.NodeLookup = (*Graph)(nil)

// Graph is a URL-keyed resource node store driving one crawl. A graph
// instance is owned by a single in-flight build operation.
type Graph struct {
	mu      sync.Mutex
	nodes   map[string]*resource.Node
	rootURL string

	deps         resource.Deps
	fetchWorkers int
}

// New creates an empty resource graph. Child nodes discovered during a
// crawl are created with the provided deps. fetchWorkers bounds the
// number of concurrent sibling fetches; values below 2 keep the crawl
// sequential and fully deterministic.
func New(deps resource.Deps, fetchWorkers int) *Graph {
	if fetchWorkers < 1 {
		fetchWorkers = 1
	}

	return &Graph{
		nodes:        make(map[string]*resource.Node),
		deps:         deps,
		fetchWorkers: fetchWorkers,
	}
}

// Reset clears the graph and records the root URL of the next build.
// The root node itself is tracked by the caller, never inserted here.
func (g *Graph) Reset(rootURL string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*resource.Node)
	g.rootURL = rootURL
}

// Clear drops every node from the graph.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*resource.Node)
}

// Insert adds a node keyed by its original URL unless that key is
// already taken. The first writer wins; it reports whether the node was
// inserted.
func (g *Graph) Insert(node *resource.Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[node.OriginalURL]; exists {
		return false
	}

	g.nodes[node.OriginalURL] = node

	return true
}

// Find returns the node keyed by url, if any.
func (g *Graph) Find(url string) (*resource.Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, exists := g.nodes[url]

	return node, exists
}

// Contains reports whether a node keyed by url exists.
func (g *Graph) Contains(url string) bool {
	_, exists := g.Find(url)

	return exists
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.nodes)
}

// Keys returns every node key in ascending lexicographic order.
func (g *Graph) Keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	keys := make([]string, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Nodes returns every node in ascending key order. This ordering governs
// archive part emission.
func (g *Graph) Nodes() []*resource.Node {
	keys := g.Keys()

	g.mu.Lock()
	defer g.mu.Unlock()

	nodes := make([]*resource.Node, len(keys))
	for i, key := range keys {
		nodes[i] = g.nodes[key]
	}

	return nodes
}

// LocalName resolves a referenced URL to the download filename of its
// node, for local-path rewriting.
func (g *Graph) LocalName(url string) (string, bool) {
	node, exists := g.Find(url)
	if !exists {
		return "", false
	}

	return node.DownloadFilename(), true
}

// CrawlReferences extracts node's external references and recursively
// fetches every URL not yet present in the graph. Newly discovered
// HTML/CSS resources recurse into their own references using a
// "<name>_files" subfolder relative to targetFolder. Fetch failures of
// discovered resources are recorded on their nodes and skipped; they
// never abort the crawl.
func (g *Graph) CrawlReferences(
	node *resource.Node,
	mode resource.StorageMode,
	targetFolder string,
	recursive bool,
) error {

	if node.State != resource.Fetched || !(node.IsHTML() || node.IsCSS()) {
		return nil
	}

	refs := rewrite.ExtractReferences(node.Text())

	fresh := g.registerNew(refs, mode, targetFolder)
	if len(fresh) == 0 {
		return nil
	}

	if mode != resource.Memory && targetFolder != "" {
		if err := g.deps.FS.MkdirAll(targetFolder); err != nil {
			return err
		}
	}

	g.fetchAll(fresh)

	if mode != resource.Memory {
		for _, child := range fresh {
			if child.State != resource.Fetched {
				continue
			}

			target := filepath.Join(child.DownloadFolder, child.DownloadFilename())
			// Write failures are recovered locally; a resource that could
			// not be persisted is still usable from memory.
			_ = child.Save(target, false)
		}
	}

	if !recursive {
		return nil
	}

	for _, child := range fresh {
		if child.State != resource.Fetched {
			continue
		}

		if !(child.IsHTML() || child.IsCSS()) {
			continue
		}

		subFolder := filepath.Join(targetFolder, child.BaseName()+"_files")
		if err := g.CrawlReferences(child, mode, subFolder, true); err != nil {
			return err
		}
	}

	return nil
}

// registerNew creates and inserts nodes for referenced URLs that are not
// yet tracked. Insertion happens before fetching so that concurrent
// sibling discovery of the same URL dedups on the key.
func (g *Graph) registerNew(
	refs []rewrite.Reference,
	mode resource.StorageMode,
	targetFolder string,
) []*resource.Node {

	var fresh []*resource.Node

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, ref := range refs {
		if ref.URL == g.rootURL {
			continue
		}

		if _, exists := g.nodes[ref.URL]; exists {
			continue
		}

		child, err := resource.New(ref.URL, g.deps)
		if err != nil {
			// Pattern extraction is best effort: references that do not
			// form a valid URL are dropped.
			continue
		}

		child.Storage = mode
		if mode != resource.Memory {
			child.DownloadFolder = targetFolder
		}

		g.nodes[ref.URL] = child
		fresh = append(fresh, child)
	}

	return fresh
}

// fetchAll retrieves a batch of sibling nodes, in parallel when the
// graph was configured with more than one fetch worker. Sibling fetches
// are independent: each node was already inserted under its own key.
func (g *Graph) fetchAll(nodes []*resource.Node) {
	if g.fetchWorkers < 2 || len(nodes) < 2 {
		for _, node := range nodes {
			// Failures are recorded on the node and recovered locally.
			_ = node.Fetch()
		}

		return
	}

	ctx := context.Background()
	workers := int64(g.fetchWorkers)
	sem := semaphore.NewWeighted(workers)

	for _, node := range nodes {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		go func(n *resource.Node) {
			defer sem.Release(1)

			_ = n.Fetch()
		}(node)
	}

	// Wait for every in-flight fetch to drain.
	_ = sem.Acquire(ctx, workers)
	sem.Release(workers)
}
