// Package contactsheet tiles multishot candidates into a single PNG so a
// storyboard can be reviewed at a glance.
package contactsheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"slices"
	"strconv"
	"sync"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/manash/cinestudio/internal/logging"
	"github.com/manash/cinestudio/pkg/models"
)

const (
	Columns         = 3
	MaxCells        = models.MultishotCount
	DefaultCellSize = 240

	gap         = 8
	labelHeight = 18
	border      = 3
)

var ErrNoCells = errors.New("no candidates to tile")

var (
	background  = color.RGBA{R: 18, G: 18, B: 20, A: 255}
	placeholder = color.RGBA{R: 48, G: 48, B: 52, A: 255}
	accent      = color.RGBA{R: 212, G: 255, B: 0, A: 255}
	labelColor  = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

// Cell is one tile. Data that cannot be decoded renders as a placeholder.
type Cell struct {
	Label    string
	Data     []byte
	Selected bool
}

type Loader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// Build loads every candidate and renders the sheet. Candidates that fail to
// load still get a labeled placeholder tile.
func Build(ctx context.Context, loader Loader, shots []models.ProxyShot, selected []int64, cellSize int) ([]byte, error) {
	if len(shots) == 0 {
		return nil, ErrNoCells
	}
	if len(shots) > MaxCells {
		shots = shots[:MaxCells]
	}

	log := logging.WithComponent("contactsheet")
	cells := make([]Cell, len(shots))

	var wg sync.WaitGroup
	for i, shot := range shots {
		cells[i] = Cell{
			Label:    strconv.FormatInt(shot.ID, 10),
			Selected: slices.Contains(selected, shot.ID),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := loader.Load(ctx, shot.URL)
			if err != nil {
				log.Warn("failed to load candidate", "id", shot.ID, "error", err)
				return
			}
			cells[i].Data = data
		}()
	}
	wg.Wait()

	return Render(cells, cellSize)
}

// Render lays cells out left to right, Columns per row, and encodes the
// result as PNG.
func Render(cells []Cell, cellSize int) ([]byte, error) {
	if len(cells) == 0 {
		return nil, ErrNoCells
	}
	if len(cells) > MaxCells {
		cells = cells[:MaxCells]
	}
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}

	cols := min(len(cells), Columns)
	rows := (len(cells) + Columns - 1) / Columns
	width := cols*cellSize + (cols+1)*gap
	height := rows*(cellSize+labelHeight) + (rows+1)*gap

	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for i, c := range cells {
		x := gap + (i%Columns)*(cellSize+gap)
		y := gap + (i/Columns)*(cellSize+labelHeight+gap)
		frame := image.Rect(x, y, x+cellSize, y+cellSize)

		drawTile(sheet, frame, c.Data, cellSize)
		if c.Selected {
			drawBorder(sheet, frame, accent)
		}
		drawLabel(sheet, c.Label, x, y+cellSize+labelHeight-4)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sheet); err != nil {
		return nil, fmt.Errorf("failed to encode contact sheet: %w", err)
	}
	return buf.Bytes(), nil
}

// drawTile centers the scaled image inside frame.
func drawTile(dst draw.Image, frame image.Rectangle, data []byte, size int) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		draw.Draw(dst, frame, image.NewUniform(placeholder), image.Point{}, draw.Src)
		return
	}

	thumb := resize.Thumbnail(uint(size), uint(size), src, resize.Lanczos3)
	b := thumb.Bounds()
	off := image.Pt(frame.Min.X+(size-b.Dx())/2, frame.Min.Y+(size-b.Dy())/2)
	draw.Draw(dst, b.Sub(b.Min).Add(off), thumb, b.Min, draw.Over)
}

func drawBorder(dst draw.Image, r image.Rectangle, c color.Color) {
	u := image.NewUniform(c)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+border), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-border, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+border, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-border, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

func drawLabel(dst draw.Image, label string, x, baseline int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(label)
}
