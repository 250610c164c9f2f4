/*
	builder package is the public entry point of the page archiver. A
	Builder owns the root page node and the resource graph populated by
	crawling it, and exposes the save operations: the bare page, its
	plain-text extraction, a "complete page" directory layout and a
	single-file MIME archive.
*/

package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mycok/uArchive/archive"
	"github.com/mycok/uArchive/resource"
	"github.com/mycok/uArchive/resourcegraph"
	"github.com/mycok/uArchive/rewrite"
)

var (
	htmlExtensions    = []string{".htm", ".html"}
	textExtensions    = []string{".txt"}
	archiveExtensions = []string{".mht"}
)

// Builder archives web pages rooted at a single URL. A builder instance
// serves one build at a time and must not be shared between concurrent
// builds.
type Builder struct {
	config Config
	deps   resource.Deps
	root   *resource.Node
	graph  *resourcegraph.Graph
	logger *logrus.Entry
}

// New creates a page archive builder. It fails if the provided config is
// invalid.
func New(config Config) (*Builder, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("builder: config validation failed: %w", err)
	}

	deps := resource.Deps{
		Fetcher:            config.Fetcher,
		FS:                 config.FS,
		UseTitleAsFilename: config.UseTitleAsFilename,
		ForcedEncoding:     config.ForcedEncoding,
		ForcedEncodingName: config.ForcedEncodingName,
	}

	return &Builder{
		config: config,
		deps:   deps,
		graph:  resourcegraph.New(deps, config.FetchWorkers),
		logger: config.Logger,
	}, nil
}

// SetRootURL assigns the page to archive and clears any state left over
// from a previous build. It fails with *resolver.InvalidURLError when the
// URL is not a well-formed absolute URI.
func (b *Builder) SetRootURL(rawURL string) error {
	node, err := resource.New(rawURL, b.deps)
	if err != nil {
		return err
	}

	b.root = node
	b.graph.Reset(node.OriginalURL)

	return nil
}

// Root exposes the current root node, if any.
func (b *Builder) Root() *resource.Node { return b.root }

// SavePage fetches the root page and writes it, with embedded references
// rewritten to absolute form, to path. A path ending in a separator is
// treated as a directory and the file name is derived from the page. It
// returns the path the page was written to.
func (b *Builder) SavePage(path, rawURL string) (string, error) {
	intoDir := strings.HasSuffix(path, "/") ||
		strings.HasSuffix(path, string(os.PathSeparator))

	if !intoDir {
		if err := validateFilename(path, htmlExtensions); err != nil {
			return "", err
		}
	}

	if err := b.ensureRoot(rawURL); err != nil {
		return "", err
	}

	if intoDir {
		name := b.root.TitleDownloadFilename()
		if name == "" {
			name = b.root.DownloadFilename()
		}

		path = filepath.Join(path, name)
	}

	if err := b.root.Save(path, false); err != nil {
		return "", err
	}

	b.logger.WithFields(logrus.Fields{
		"url":  b.root.ResolvedURL,
		"path": path,
	}).Info("saved page")

	return path, nil
}

// SavePageText fetches the root page and writes its plain-text extraction
// to path.
func (b *Builder) SavePageText(path, rawURL string) (string, error) {
	if err := validateFilename(path, textExtensions); err != nil {
		return "", err
	}

	if err := b.ensureRoot(rawURL); err != nil {
		return "", err
	}

	if err := b.root.Save(path, true); err != nil {
		return "", err
	}

	return path, nil
}

// SavePageComplete fetches the root page and every resource it references,
// persists the resources under a "<page>_files" sibling directory and
// writes the page itself, with references rewritten to the local copies,
// to path.
func (b *Builder) SavePageComplete(path, rawURL string) (string, error) {
	if err := validateFilename(path, htmlExtensions); err != nil {
		return "", err
	}

	if err := b.ensureRoot(rawURL); err != nil {
		return "", err
	}

	defer b.reuseRootAfter()()

	filesFolder := strings.TrimSuffix(path, filepath.Ext(path)) + "_files"

	b.logger.WithFields(logrus.Fields{
		"url":    b.root.ResolvedURL,
		"folder": filesFolder,
	}).Info("crawling page resources")

	err := b.graph.CrawlReferences(b.root, resource.DiskPermanent, filesFolder, true)
	if err != nil {
		return "", err
	}

	b.rewriteToLocal(filepath.Base(filesFolder))

	if err := b.root.Save(path, false); err != nil {
		return "", err
	}

	// Re-persist rewritten text resources over the copies saved during
	// the crawl. Write failures of secondary resources are reported but
	// never abort the save.
	for _, node := range b.graph.Nodes() {
		if node.State != resource.Fetched || !(node.IsHTML() || node.IsCSS()) {
			continue
		}

		target := filepath.Join(node.DownloadFolder, node.DownloadFilename())
		if err := node.Save(target, false); err != nil {
			b.logger.WithFields(logrus.Fields{
				"url":  node.ResolvedURL,
				"path": target,
			}).WithError(err).Warn("failed to persist resource")
		}
	}

	b.logger.WithFields(logrus.Fields{
		"url":       b.root.ResolvedURL,
		"path":      path,
		"resources": b.graph.Len(),
	}).Info("saved complete page")

	return path, nil
}

// GetPageArchive fetches the root page and every resource it references,
// keeping all content in memory, and returns the assembled MIME archive
// text. The resource graph is cleared afterwards.
func (b *Builder) GetPageArchive(rawURL string) (string, error) {
	if err := b.ensureRoot(rawURL); err != nil {
		return "", err
	}

	defer b.graph.Clear()
	defer b.reuseRootAfter()()

	if err := b.graph.CrawlReferences(b.root, resource.Memory, "", true); err != nil {
		return "", err
	}

	b.rewriteToLocal(b.root.BaseName() + "_files")

	encoder := archive.NewEncoder(b.archiveConfig())
	if err := encoder.WriteAll(b.root, b.graph); err != nil {
		return "", err
	}

	text, err := encoder.Finalize()
	if err != nil {
		return "", err
	}

	b.logger.WithFields(logrus.Fields{
		"url":       b.root.ResolvedURL,
		"resources": b.graph.Len(),
	}).Info("produced page archive")

	return text, nil
}

// SavePageArchive fetches the root page and every resource it references
// and writes the assembled MIME archive to path. mode selects where the
// crawled resources are staged: in memory, in a scratch directory removed
// after the build, or permanently next to the archive (in which case a
// bare ".htm" copy of the page is saved alongside it). It returns the path
// the archive was written to; the resource graph is cleared afterwards.
func (b *Builder) SavePageArchive(
	path string, mode resource.StorageMode, rawURL string,
) (string, error) {

	if err := validateFilename(path, archiveExtensions); err != nil {
		return "", err
	}

	if err := b.ensureRoot(rawURL); err != nil {
		return "", err
	}

	defer b.graph.Clear()
	defer b.reuseRootAfter()()

	stem := strings.TrimSuffix(path, filepath.Ext(path))

	var folder string
	switch mode {
	case resource.DiskPermanent:
		folder = stem + "_files"

		if err := b.root.Save(stem+".htm", false); err != nil {
			b.logger.WithError(err).Warn("failed to save page copy next to archive")
		}
	case resource.DiskTemporary:
		folder = filepath.Join(os.TempDir(), "uarchive-"+uuid.NewString())
	}

	if err := b.graph.CrawlReferences(b.root, mode, folder, true); err != nil {
		return "", err
	}

	localFolder := b.root.BaseName() + "_files"
	if folder != "" {
		localFolder = filepath.Base(folder)
	}
	b.rewriteToLocal(localFolder)

	encoder := archive.NewEncoder(b.archiveConfig())
	if err := encoder.WriteAll(b.root, b.graph); err != nil {
		return "", err
	}

	if err := encoder.FinalizeToFile(b.config.FS, path, b.root); err != nil {
		return "", err
	}

	if mode == resource.DiskTemporary {
		b.removeTemporaryFiles()
	}

	b.logger.WithFields(logrus.Fields{
		"url":  b.root.ResolvedURL,
		"path": path,
	}).Info("saved page archive")

	return path, nil
}

// ensureRoot assigns a new root when rawURL is non-empty and guarantees
// the root page has been fetched. A root fetch failure is terminal for the
// build and surfaces as *DownloadFailedError.
func (b *Builder) ensureRoot(rawURL string) error {
	if rawURL != "" {
		if err := b.SetRootURL(rawURL); err != nil {
			return err
		}
	}

	if b.root == nil {
		return ErrNoRootURL
	}

	if err := b.root.Fetch(); err != nil {
		return &DownloadFailedError{URL: b.root.ResolvedURL, Cause: err}
	}

	return nil
}

// reuseRootAfter snapshots the root's absolutized content and clears its
// emission mark; the returned restore function undoes the in-place
// mutations (local rewriting, archive emission) a build applies to the
// retained root so a later build starts from the same fetched state.
func (b *Builder) reuseRootAfter() func() {
	content := b.root.Bytes
	b.root.Appended = false

	return func() { b.root.Bytes = content }
}

// rewriteToLocal rewrites the references of every fetched text resource,
// the root included, to the local download names of their nodes. The root
// rewrites against rootLocalFolder; every other resource rewrites against
// its own "<name>_files" subfolder, which is where its children were
// staged during the crawl.
func (b *Builder) rewriteToLocal(rootLocalFolder string) {
	b.rewriteNode(b.root, rootLocalFolder)

	for _, node := range b.graph.Nodes() {
		b.rewriteNode(node, node.BaseName()+"_files")
	}
}

func (b *Builder) rewriteNode(node *resource.Node, localFolder string) {
	if node.State != resource.Fetched || !(node.IsHTML() || node.IsCSS()) {
		return
	}

	text := node.Text()
	refs := rewrite.ExtractReferences(text)
	if len(refs) == 0 {
		return
	}

	node.SetText(rewrite.ToLocal(text, refs, b.graph, localFolder))
}

// removeTemporaryFiles deletes every staged resource file and any scratch
// directory the deletion emptied, deepest directories first.
func (b *Builder) removeTemporaryFiles() {
	folders := make(map[string]struct{})

	for _, node := range b.graph.Nodes() {
		if node.State != resource.Fetched || node.DownloadFolder == "" {
			continue
		}

		target := filepath.Join(node.DownloadFolder, node.DownloadFilename())
		if err := b.config.FS.Remove(target); err != nil {
			b.logger.WithField("path", target).
				WithError(err).Warn("failed to remove temporary file")

			continue
		}

		folders[node.DownloadFolder] = struct{}{}
	}

	sorted := make([]string, 0, len(folders))
	for folder := range folders {
		sorted = append(sorted, folder)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	for _, folder := range sorted {
		entries, err := b.config.FS.ReadDir(folder)
		if err != nil || len(entries) > 0 {
			continue
		}

		if err := b.config.FS.RemoveDir(folder); err != nil {
			b.logger.WithField("path", folder).
				WithError(err).Warn("failed to remove temporary folder")
		}
	}
}

func (b *Builder) archiveConfig() archive.Config {
	return archive.Config{
		SavedBy:   b.config.SavedBy,
		Generator: b.config.Generator,
		Version:   b.config.Version,
		Clock:     b.config.Clock,
	}
}

// validateFilename checks that path carries one of the allowed file
// extensions. Validation runs before any network activity.
func validateFilename(path string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return &InvalidFileNameError{Path: path, Allowed: allowed}
	}

	for _, candidate := range allowed {
		if ext == candidate {
			return nil
		}
	}

	return &InvalidExtensionError{Path: path, Ext: ext, Allowed: allowed}
}
