// Package catalog scans a cache folder and collapses size variants of the
// same image into a single reviewable item.
//
// The catalog keeps two views of a scan: the active item list shown to the
// user (one survivor per group plus every standalone image) and the group
// records, which retain every variant so a decision on the survivor can be
// applied to its siblings.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/pattern"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// ErrInvalidFolder is returned when the scan target does not exist, is not a
// directory, or cannot be listed.
var ErrInvalidFolder = errors.New("invalid folder")

// GroupRecord holds every variant discovered for one group key.
type GroupRecord struct {
	Key      pattern.GroupKey
	Variants map[pattern.VariantTag]types.ImageItem
}

// Survivor returns the variant that represents the group in the active list:
// the strictly larger file, with ties going to the lower pattern.TagRank.
func (g *GroupRecord) Survivor() (types.ImageItem, bool) {
	var (
		best     types.ImageItem
		bestRank int
		found    bool
	)
	for tag, item := range g.Variants {
		rank := pattern.TagRank(tag)
		if !found || item.Size > best.Size || (item.Size == best.Size && rank < bestRank) {
			best, bestRank = item, rank
			found = true
		}
	}
	return best, found
}

// Paths returns the paths of all variants in tag order.
func (g *GroupRecord) Paths() []string {
	paths := make([]string, 0, len(g.Variants))
	for _, tag := range pattern.Tags {
		if item, ok := g.Variants[tag]; ok {
			paths = append(paths, item.Path)
		}
	}
	return paths
}

// Has reports whether path is one of the recorded variants.
func (g *GroupRecord) Has(path string) bool {
	for _, item := range g.Variants {
		if item.Path == path {
			return true
		}
	}
	return false
}

// LoadResult summarizes a successful scan.
type LoadResult struct {
	// Count is the number of active items after deduplication.
	Count int

	// Skipped lists images whose size could not be read.
	Skipped []types.SkippedFile
}

// Catalog is the deduplicated view of one scanned folder.
// It is not safe for concurrent use.
type Catalog struct {
	items  []types.ImageItem
	groups map[pattern.GroupKey]*GroupRecord
	dir    string
	log    *logging.Logger
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		groups: make(map[pattern.GroupKey]*GroupRecord),
		log:    logging.Get("catalog"),
	}
}

// Load scans the immediate entries of folder and replaces the catalog state.
// Entries are processed in lexical filename order. On error the previous
// state is left untouched.
func (c *Catalog) Load(ctx context.Context, folder string) (LoadResult, error) {
	root, err := validateFolder(folder)
	if err != nil {
		return LoadResult{}, err
	}

	found, skipped, err := listImages(ctx, root)
	if err != nil {
		return LoadResult{}, err
	}

	items, groups := resolve(found)

	c.items = items
	c.groups = groups
	c.dir = root

	c.log.Info("folder loaded",
		"path", root,
		"images", len(found),
		"items", len(items),
		"groups", len(groups),
		"skipped", len(skipped))

	return LoadResult{Count: len(items), Skipped: skipped}, nil
}

// validateFolder resolves folder to an absolute directory path.
func validateFolder(folder string) (string, error) {
	if folder == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidFolder)
	}

	root, err := filepath.Abs(folder)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFolder, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFolder, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidFolder, root)
	}

	return root, nil
}

// listImages returns the image files directly inside root, sorted by name.
func listImages(ctx context.Context, root string) ([]types.ImageItem, []types.SkippedFile, error) {
	var (
		mu      sync.Mutex
		items   []types.ImageItem
		skipped []types.SkippedFile
		rootErr error
	)

	conf := fastwalk.Config{
		Follow: false,
	}

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path == root {
			if err != nil {
				mu.Lock()
				rootErr = err
				mu.Unlock()
				return err
			}
			return nil
		}

		name := filepath.Base(path)

		if err != nil {
			if pattern.IsImageFile(name) {
				mu.Lock()
				skipped = append(skipped, types.SkippedFile{Filename: name, Error: err.Error()})
				mu.Unlock()
			}
			return nil
		}

		// Immediate entries only.
		if d.IsDir() {
			return fastwalk.SkipDir
		}

		if !d.Type().IsRegular() || !pattern.IsImageFile(name) {
			return nil
		}

		info, err := d.Info()
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			skipped = append(skipped, types.SkippedFile{Filename: name, Error: err.Error()})
			return nil
		}
		items = append(items, types.ImageItem{
			Path:     path,
			Size:     info.Size(),
			Filename: name,
		})
		return nil
	})

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if rootErr != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFolder, rootErr)
	}
	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFolder, walkErr)
	}

	// fastwalk invokes the callback from several goroutines.
	sort.Slice(items, func(i, j int) bool { return items[i].Filename < items[j].Filename })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Filename < skipped[j].Filename })

	return items, skipped, nil
}

// resolve builds the active item list and group records from images in
// discovery order.
func resolve(found []types.ImageItem) ([]types.ImageItem, map[pattern.GroupKey]*GroupRecord) {
	groups := make(map[pattern.GroupKey]*GroupRecord)
	var order []pattern.GroupKey
	var standalone []types.ImageItem

	for _, item := range found {
		m := pattern.Classify(item.Filename)
		if !m.Grouped {
			standalone = append(standalone, item)
			continue
		}

		g, ok := groups[m.Key]
		if !ok {
			g = &GroupRecord{
				Key:      m.Key,
				Variants: make(map[pattern.VariantTag]types.ImageItem, len(pattern.Tags)),
			}
			groups[m.Key] = g
			order = append(order, m.Key)
		}

		// Same key and tag under another extension: the first one owns the
		// slot and the rest are reviewed on their own.
		if _, taken := g.Variants[m.Tag]; taken {
			standalone = append(standalone, item)
			continue
		}
		g.Variants[m.Tag] = item
	}

	items := make([]types.ImageItem, 0, len(order)+len(standalone))
	for _, key := range order {
		if survivor, ok := groups[key].Survivor(); ok {
			items = append(items, survivor)
		}
	}
	items = append(items, standalone...)

	return items, groups
}

// FindRelated returns every path that shares a duplicate group with path,
// including path itself when it is a known variant. Standalone files are
// related only to themselves.
//
// When the group key was never scanned, the file's directory is searched for
// another grouped image with the same key and the first match (in lexical
// order) is returned on its own. Errors during that search are ignored.
func (c *Catalog) FindRelated(path string) []string {
	m := pattern.Classify(filepath.Base(path))
	if !m.Grouped {
		return []string{path}
	}

	if g, ok := c.groups[m.Key]; ok {
		if g.Has(path) {
			return g.Paths()
		}
		return []string{path}
	}

	if match, ok := findSibling(path, m.Key); ok {
		c.log.Debug("related file found on disk", "path", path, "match", match)
		return []string{match}
	}
	return []string{path}
}

// findSibling looks next to path for another grouped image with key.
func findSibling(path string, key pattern.GroupKey) (string, bool) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base || !pattern.IsImageFile(name) {
			continue
		}
		if m := pattern.Classify(name); m.Grouped && m.Key == key {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

// Get returns the active item at index i.
func (c *Catalog) Get(i int) (types.ImageItem, bool) {
	if i < 0 || i >= len(c.items) {
		return types.ImageItem{}, false
	}
	return c.items[i], true
}

// Remove drops the active item at index i. Group records are kept.
func (c *Catalog) Remove(i int) bool {
	if i < 0 || i >= len(c.items) {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// RemovePaths drops every active item whose path is in paths and returns the
// number removed.
func (c *Catalog) RemovePaths(paths []string) int {
	if len(paths) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}

	removed := 0
	for i := len(c.items) - 1; i >= 0; i-- {
		if _, ok := set[c.items[i].Path]; ok {
			c.Remove(i)
			removed++
		}
	}
	return removed
}

// IndexOf returns the index of the active item with path, or -1.
func (c *Catalog) IndexOf(path string) int {
	for i, item := range c.items {
		if item.Path == path {
			return i
		}
	}
	return -1
}

// All returns a copy of the active items.
func (c *Catalog) All() []types.ImageItem {
	out := make([]types.ImageItem, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the number of active items.
func (c *Catalog) Count() int {
	return len(c.items)
}

// Group returns the record for key.
func (c *Catalog) Group(key pattern.GroupKey) (*GroupRecord, bool) {
	g, ok := c.groups[key]
	return g, ok
}

// Groups returns the number of group records.
func (c *Catalog) Groups() int {
	return len(c.groups)
}

// Dir returns the folder of the last successful scan.
func (c *Catalog) Dir() string {
	return c.dir
}

// Clear empties the catalog.
func (c *Catalog) Clear() {
	c.items = nil
	c.groups = make(map[pattern.GroupKey]*GroupRecord)
	c.dir = ""
}
