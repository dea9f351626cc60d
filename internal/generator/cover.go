package generator

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image/color"
	"strings"
	"unicode"

	"github.com/fogleman/gg"

	"github.com/skilldigest/skilldigest/internal/skill"
)

// CoverRenderer draws cover images locally: a purple-blue gradient with
// accent geometry seeded from (date, identity), plus the skill's initial
// glyph. Rendering the same skill on the same date yields the same PNG,
// which keeps cover artifacts idempotent alongside articles.
type CoverRenderer struct {
	Width  int
	Height int
}

// NewCoverRenderer creates a 16:9 renderer sized for feed thumbnails.
func NewCoverRenderer() *CoverRenderer {
	return &CoverRenderer{Width: 1200, Height: 675}
}

// Render produces the cover PNG for sk on date.
func (c *CoverRenderer) Render(sk skill.Skill, date string) ([]byte, error) {
	dc := gg.NewContext(c.Width, c.Height)
	seed := sha256.Sum256([]byte(date + "|" + sk.Identity))

	w, h := float64(c.Width), float64(c.Height)

	// Gradient background, purple into blue, tinted per seed.
	top, bottom := coverPalette(seed)
	for y := 0; y < c.Height; y++ {
		t := float64(y) / h
		dc.SetColor(lerpColor(top, bottom, t))
		dc.DrawRectangle(0, float64(y), w, 1)
		dc.Fill()
	}

	// Translucent accent bars at seed-chosen positions.
	for i := 0; i < 4; i++ {
		x := float64(seed[2*i]) / 255 * w
		barW := 36 + float64(seed[2*i+1])/255*90
		dc.SetColor(color.RGBA{255, 255, 255, 14 + seed[8+i]%16})
		dc.DrawRectangle(x, 0, barW, h)
		dc.Fill()
	}

	// Concentric rings behind the glyph.
	cx, cy := w/2, h/2
	for i := 3; i >= 1; i-- {
		r := 90.0 + float64(i)*46
		dc.SetColor(color.RGBA{255, 255, 255, 10 + uint8(i)*6})
		dc.DrawCircle(cx, cy, r)
		dc.Fill()
	}
	dc.SetColor(color.RGBA{255, 255, 255, 235})
	dc.DrawCircle(cx, cy, 96)
	dc.Fill()

	// Initial glyph. The built-in face stays readable if no system font
	// loads; covers remain best-effort either way.
	loadCoverFont(dc, 120)
	dc.SetColor(lerpColor(top, bottom, 0.5))
	dc.DrawStringAnchored(initialGlyph(sk.Name), cx, cy, 0.5, 0.5)

	// Footer strip with the column name and date.
	dc.SetColor(color.RGBA{0, 0, 0, 70})
	dc.DrawRectangle(0, h-64, w, 64)
	dc.Fill()
	loadCoverFont(dc, 24)
	dc.SetColor(color.RGBA{255, 255, 255, 220})
	dc.DrawStringAnchored(fmt.Sprintf("Skill Digest · %s", date), cx, h-32, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

// coverPalette derives the gradient endpoints, keeping them in the
// purple-to-blue family with a per-seed tint.
func coverPalette(seed [32]byte) (color.RGBA, color.RGBA) {
	tint := func(base uint8, delta byte) uint8 {
		v := int(base) + int(delta%48) - 24
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return uint8(v)
	}
	top := color.RGBA{tint(92, seed[16]), tint(50, seed[17]), tint(168, seed[18]), 255}
	bottom := color.RGBA{tint(34, seed[19]), tint(70, seed[20]), tint(178, seed[21]), 255}
	return top, bottom
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// initialGlyph is the first letter or digit of name, uppercased; "S" when
// the name has none.
func initialGlyph(name string) string {
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return strings.ToUpper(string(r))
		}
	}
	return "S"
}

var coverFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
}

func loadCoverFont(dc *gg.Context, size float64) {
	for _, path := range coverFontPaths {
		if err := dc.LoadFontFace(path, size); err == nil {
			return
		}
	}
	// gg falls back to its built-in face.
}
