// Package display renders studio media inline in terminals that speak the
// kitty graphics protocol.
package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
	"golang.org/x/term"
)

// DefaultMaxSize bounds the longest side of a preview in pixels.
const DefaultMaxSize = 768

var ErrUndecodable = errors.New("media is not a decodable image")

// Loader resolves a media URL to its bytes.
type Loader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

type Displayer struct {
	out     io.Writer
	loader  Loader
	maxSize uint
	cols    int
}

func New(out io.Writer, loader Loader) *Displayer {
	return &Displayer{
		out:     out,
		loader:  loader,
		maxSize: DefaultMaxSize,
	}
}

// SetColumns limits the drawn width in terminal cells. Zero lets the
// terminal use the image's own size.
func (d *Displayer) SetColumns(cols int) {
	d.cols = cols
}

// Show fetches url and draws it.
func (d *Displayer) Show(ctx context.Context, url string) error {
	if d.loader == nil {
		return fmt.Errorf("no loader for %s", url)
	}
	data, err := d.loader.Load(ctx, url)
	if err != nil {
		return err
	}
	return d.ShowBytes(data)
}

// ShowBytes downscales an encoded image and draws it.
func (d *Displayer) ShowBytes(data []byte) error {
	thumb, err := Thumbnail(data, d.maxSize)
	if err != nil {
		return err
	}

	if err := NewKittyEncoder(d.out, d.cols).Encode(thumb); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	fmt.Fprintln(d.out)
	return nil
}

// Thumbnail decodes png, jpeg, gif or webp data and returns a PNG no larger
// than size on either side. Smaller images keep their dimensions.
func Thumbnail(data []byte, size uint) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// GraphicsSupported reports whether the terminal described by the
// environment understands kitty graphics.
func GraphicsSupported(getenv func(string) string) bool {
	switch strings.ToLower(getenv("TERM_PROGRAM")) {
	case "kitty", "ghostty", "iterm.app", "wezterm":
		return true
	}

	if getenv("KITTY_WINDOW_ID") != "" || getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	t := strings.ToLower(getenv("TERM"))
	return strings.Contains(t, "kitty") || strings.Contains(t, "ghostty")
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f in cells, or fallback when it cannot
// be determined.
func Width(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
