package card

import (
	"image"
	"image/color"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var languageArabic = language.NewLanguage("ar")

// shapeArabic shapes s as one right-to-left run. The glyphs of the output are
// in visual order, left to right, with contextual forms and mark positions
// already applied.
func shapeArabic(f *gtfont.Font, size float64, s string) shaping.Output {
	runes := []rune(s)
	var shaper shaping.HarfbuzzShaper
	return shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionRTL,
		Face:      gtfont.NewFace(f),
		Size:      fixed.Int26_6(size * 64),
		Script:    language.Arabic,
		Language:  languageArabic,
	})
}

// drawShapedCentered fills the glyph outlines of run in white, centred on
// CenterX with the given baseline.
func drawShapedCentered(dst *image.RGBA, run shaping.Output, baseline int) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	scale := fixedToFloat(run.Size) / float32(run.Face.Upem())

	penX := float32(CenterX) - fixedToFloat(run.Advance)/2
	for _, g := range run.Glyphs {
		if outline, ok := run.Face.GlyphData(g.GlyphID).(gtfont.GlyphOutline); ok {
			// offsets grow up, the canvas grows down
			x := penX + fixedToFloat(g.XOffset) - float32(b.Min.X)
			y := float32(baseline) - fixedToFloat(g.YOffset) - float32(b.Min.Y)
			addOutline(z, outline, x, y, scale)
		}
		penX += fixedToFloat(g.XAdvance)
	}
	z.Draw(dst, b, image.NewUniform(color.White), image.Point{})
}

// addOutline adds the contours of a glyph, given in font units with Y up, at
// origin (x, y) in canvas pixels.
func addOutline(z *vector.Rasterizer, outline gtfont.GlyphOutline, x, y, scale float32) {
	pt := func(p ot.SegmentPoint) (float32, float32) {
		return x + p.X*scale, y - p.Y*scale
	}

	open := false
	for _, seg := range outline.Segments {
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(seg.Args[0]))
			open = true
		case ot.SegmentOpLineTo:
			z.LineTo(pt(seg.Args[0]))
		case ot.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case ot.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			dx, dy := pt(seg.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	if open {
		z.ClosePath()
	}
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

// shapedWidth reports the advance of a shaped run in pixels
func shapedWidth(run shaping.Output) float64 {
	return float64(fixedToFloat(run.Advance))
}
