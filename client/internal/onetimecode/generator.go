// Package onetimecode renders the scannable payment code shown for the
// one-time payment channel.
package onetimecode

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyTarget = errors.New("payment target cannot be empty")
	ErrTooSmall    = errors.New("width too small for code")
)

// Defaults used when the config leaves them unset.
const (
	DefaultTarget = "https://github.com/shuharib0t"
	DefaultWidth  = 200
	DefaultMargin = 2
)

// Image is a generated payment code.
type Image struct {
	PNG      []byte
	DataURL  string
	Terminal string // half-block rendering, one text row per two modules
	Width    int
}

// Generator builds payment code images.
type Generator struct {
	level skipqrcode.RecoveryLevel
}

// NewGenerator returns a generator using medium error recovery.
func NewGenerator() *Generator {
	return &Generator{level: skipqrcode.Medium}
}

// Generate encodes target into a square PNG exactly width pixels wide with a
// quiet zone of margin modules on every side.
func (g *Generator) Generate(ctx context.Context, target string, width, margin int) (*Image, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrEmptyTarget
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if margin < 0 {
		margin = 0
	}

	q, err := skipqrcode.New(target, g.level)
	if err != nil {
		return nil, fmt.Errorf("encode payment code: %w", err)
	}
	q.DisableBorder = true

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	modules := withMargin(q.Bitmap(), margin)
	if width < len(modules) {
		return nil, fmt.Errorf("%w: %d px for %d modules", ErrTooSmall, width, len(modules))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scale(modules, width)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return &Image{
		PNG:      buf.Bytes(),
		DataURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Terminal: halfBlocks(modules),
		Width:    width,
	}, nil
}

// withMargin surrounds the bitmap with margin rows and columns of light modules.
func withMargin(bits [][]bool, margin int) [][]bool {
	n := len(bits) + 2*margin
	out := make([][]bool, n)
	for y := range out {
		out[y] = make([]bool, n)
	}
	for y, row := range bits {
		copy(out[y+margin][margin:], row)
	}
	return out
}

func scale(modules [][]bool, width int) image.Image {
	n := len(modules)
	img := image.NewPaletted(image.Rect(0, 0, width, width), color.Palette{color.White, color.Black})
	for y := 0; y < width; y++ {
		my := y * n / width
		for x := 0; x < width; x++ {
			if modules[my][x*n/width] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}

// halfBlocks draws two module rows per text line. Dark modules print as
// light cells so the code reads on dark terminals.
func halfBlocks(modules [][]bool) string {
	var sb strings.Builder
	for y := 0; y < len(modules); y += 2 {
		for x := range modules[y] {
			top := !modules[y][x]
			bottom := y+1 < len(modules) && !modules[y+1][x]
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
