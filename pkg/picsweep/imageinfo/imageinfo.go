// Package imageinfo reads image dimensions without decoding pixel data.
package imageinfo

import (
	"errors"
	"fmt"
	"image"
	"os"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnknownFormat is returned for files no registered decoder recognizes.
var ErrUnknownFormat = errors.New("unknown image format")

// Info describes an image header.
type Info struct {
	Format string `json:"format" yaml:"format"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// String returns e.g. "png 1280x720".
func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d", i.Format, i.Width, i.Height)
}

// Pixels returns Width*Height.
func (i Info) Pixels() int {
	return i.Width * i.Height
}

// Probe reads the header of the image at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
		}
		return Info{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
