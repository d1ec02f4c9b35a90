// Package pattern classifies cached image filenames.
//
// Chat clients cache each received picture twice, as "<hash>_0.<ext>" (the
// full-resolution copy) and "<hash>_720.<ext>" (the downscaled preview).
// Files that follow this convention are grouped by hash so only one copy
// is reviewed; every other image is standalone.
package pattern

import (
	"path/filepath"
	"strings"
)

// GroupKey identifies the logical image shared by size variants.
type GroupKey string

// VariantTag is the trailing "_<tag>" segment of a grouped filename.
type VariantTag string

const (
	// TagFull marks the full-resolution copy.
	TagFull VariantTag = "0"
	// TagLow marks the low-resolution preview.
	TagLow VariantTag = "720"
)

// Tags lists the recognized variant tags in resolution order. Equal-size
// ties are broken in favor of the earlier tag.
var Tags = []VariantTag{TagFull, TagLow}

// ImageExtensions are the recognized image file extensions (lowercase, with dot).
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// Match is the result of classifying a filename.
type Match struct {
	// Grouped is true when the filename follows the variant convention.
	Grouped bool

	// Key is the group key; empty for standalone files.
	Key GroupKey

	// Tag is the variant tag; empty for standalone files.
	Tag VariantTag
}

// Classify reports whether filename is a size variant and, if so, its group
// key and tag. Only the final "." suffix is treated as the extension and only
// the final "_" segment of the remaining base is tested as a tag. No
// filesystem access is performed.
func Classify(filename string) Match {
	base := filename
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}

	sep := strings.LastIndexByte(base, '_')
	if sep <= 0 {
		return Match{}
	}

	tag := VariantTag(base[sep+1:])
	if !IsTag(tag) {
		return Match{}
	}

	return Match{
		Grouped: true,
		Key:     GroupKey(base[:sep]),
		Tag:     tag,
	}
}

// IsTag reports whether tag is one of the recognized variant tags.
func IsTag(tag VariantTag) bool {
	for _, t := range Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagRank returns the position of tag in Tags, or len(Tags) if unknown.
func TagRank(tag VariantTag) int {
	for i, t := range Tags {
		if t == tag {
			return i
		}
	}
	return len(Tags)
}

// IsImageFile reports whether name has a recognized image extension,
// ignoring case.
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
