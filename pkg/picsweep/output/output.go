// Package output renders scan listings for the picsweep CLI in several
// formats (pretty, plain, json, jsonl, yaml).
//
// Formatters register themselves by name:
//
//	f, err := output.Get("json")
//	if err != nil {
//	    return err
//	}
//	return f.Format(os.Stdout, result)
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// Variant is one size variant of a grouped item.
type Variant struct {
	Path      string `json:"path" yaml:"path"`
	Tag       string `json:"tag" yaml:"tag"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`
	Survivor  bool   `json:"survivor" yaml:"survivor"`
}

// Item is one reviewable image.
type Item struct {
	Path      string `json:"path" yaml:"path"`
	Name      string `json:"name" yaml:"name"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// Group is the group key, empty for standalone images.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`

	// Variants is filled when group details were requested.
	Variants []Variant `json:"variants,omitempty" yaml:"variants,omitempty"`

	// Dimensions is filled when image headers were probed.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// Dimensions returns "WxH", or "" when not probed.
func (i Item) Dimensions() string {
	if i.Width == 0 && i.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// Result is a complete scan listing.
type Result struct {
	Folder   string              `json:"folder" yaml:"folder"`
	Items    []Item              `json:"items" yaml:"items"`
	Groups   int                 `json:"groups" yaml:"groups"`
	Skipped  []types.SkippedFile `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Duration time.Duration       `json:"-" yaml:"-"`
	Warnings []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TotalSize sums the sizes of the listed items.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, it := range r.Items {
		total += it.Size
	}
	return total
}

// Reclaimable sums the sizes of non-surviving variants.
func (r *Result) Reclaimable() int64 {
	var total int64
	for _, it := range r.Items {
		for _, v := range it.Variants {
			if !v.Survivor {
				total += v.Size
			}
		}
	}
	return total
}

// Formatter writes a Result.
type Formatter interface {
	Format(w io.Writer, r *Result) error
}

var (
	mu        sync.RWMutex
	factories = map[string]func() Formatter{}
)

// Register adds or replaces a formatter.
func Register(name string, factory func() Formatter) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Get returns a new formatter by name.
func Get(name string) (Formatter, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, available())
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	return available()
}

func available() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
