package card

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Renderer draws condolence cards. It holds no per-render state and can be
// shared between goroutines.
type Renderer struct {
	fonts             *FontSet
	svgFallbackWidth  int
	svgFallbackHeight int
}

// NewRenderer creates a renderer. SVG photos without an explicit size are
// rasterized at svgFallbackWidth x svgFallbackHeight.
func NewRenderer(fonts *FontSet, svgFallbackWidth, svgFallbackHeight int) *Renderer {
	return &Renderer{
		fonts:             fonts,
		svgFallbackWidth:  svgFallbackWidth,
		svgFallbackHeight: svgFallbackHeight,
	}
}

// Render composes the card for photo and form and returns it PNG encoded
func (r *Renderer) Render(photo []byte, form FormInput) (out []byte, err error) {
	start := time.Now()
	if strings.TrimSpace(form.FullName) == "" {
		return nil, newRenderError(ReasonMissingInput, "full name is required")
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("card: render panicked", "panic", p)
			out, err = nil, newRenderError(ReasonDrawFailure, "render panicked: %v", p)
		}
	}()

	source, img, err := DecodeSource(photo, r.svgFallbackWidth, r.svgFallbackHeight)
	if err != nil {
		return nil, err
	}

	canvas, err := r.draw(source, img, form)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		slog.Error("card: failed to encode card", "error", err)
		return nil, newRenderError(ReasonDrawFailure, "failed to encode card as PNG: %w", err)
	}
	if buf.Len() < MinEncodedSize {
		return nil, newRenderError(ReasonDrawFailure, "encoded card is implausibly small (%d bytes)", buf.Len())
	}

	slog.Debug("card: render complete",
		"full_name", form.FullName,
		"photo_format", source.Format,
		"output_size_bytes", buf.Len(),
		"duration_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func (r *Renderer) draw(source *SourceImage, img image.Image, form FormInput) (*image.RGBA, error) {
	faces := &faceCache{}
	defer faces.close()

	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	text := func(f *opentype.Font, size float64, s string, baseline int) error {
		face, err := faces.open(f, size)
		if err != nil {
			return newRenderError(ReasonDrawFailure, "%w", err)
		}
		drawCentered(canvas, face, s, baseline)
		return nil
	}

	if err := text(r.fonts.Bold, titleSize, Title, TitleBaseline); err != nil {
		return nil, err
	}
	drawShapedCentered(canvas, shapeArabic(r.fonts.Invocation, invokeSize, Invocation), InvocationBaseline)

	drawPhoto(canvas, img, source)

	if err := text(r.fonts.Bold, nameSize, strings.ToUpper(form.FullName), NameBaseline); err != nil {
		return nil, err
	}
	if dates := form.DatesLine(); dates != "" {
		if err := text(r.fonts.Regular, datesSize, dates, DatesBaseline); err != nil {
			return nil, err
		}
	}
	if info := form.InfoLine(); info != "" {
		if err := text(r.fonts.Regular, infoSize, info, InfoBaseline); err != nil {
			return nil, err
		}
	}

	drawRule(canvas)

	messageFace, err := faces.open(r.fonts.Regular, messageSize)
	if err != nil {
		return nil, newRenderError(ReasonDrawFailure, "%w", err)
	}
	y := MessageBaseline
	lines := WrapText(messageFace, form.CustomMessage, MessageMaxWidth)
	for i, line := range lines {
		if i > 0 {
			y += MessageLineHeight
		}
		drawCentered(canvas, messageFace, line, y)
	}

	if err := text(r.fonts.Italic, closingSize, ClosingText, y+ClosingOffset); err != nil {
		return nil, err
	}

	slog.Debug("card: canvas drawn", "message_lines", len(lines), "closing_baseline", y+ClosingOffset)
	return canvas, nil
}

func drawCentered(dst draw.Image, face font.Face, s string, baseline int) {
	width := font.MeasureString(face, s)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(CenterX) - width/2, Y: fixed.I(baseline)},
	}
	d.DrawString(s)
}

// drawPhoto paints the cover-fitted photo clipped to the frame circle and
// strokes the white border over the clip edge.
func drawPhoto(canvas *image.RGBA, img image.Image, source *SourceImage) {
	drawWidth, drawHeight := CoverFit(source.Width, source.Height, PhotoRadius, CoverMultiplier)
	b := img.Bounds()
	sx := drawWidth / float64(b.Dx())
	sy := drawHeight / float64(b.Dy())
	left := float64(CenterX) - drawWidth/2
	top := float64(PhotoCenterY) - drawHeight/2

	// src -> canvas: scale then translate so the photo is centred on the circle
	m := f64.Aff3{
		sx, 0, left - float64(b.Min.X)*sx,
		0, sy, top - float64(b.Min.Y)*sy,
	}

	mask := image.NewAlpha(canvas.Bounds())
	fillCircle(mask, float64(CenterX), float64(PhotoCenterY), PhotoRadius)

	frame := image.Rect(CenterX-PhotoRadius-1, PhotoCenterY-PhotoRadius-1, CenterX+PhotoRadius+1, PhotoCenterY+PhotoRadius+1)
	dst := canvas.SubImage(frame).(*image.RGBA)
	xdraw.CatmullRom.Transform(dst, m, img, b, xdraw.Over, &xdraw.Options{DstMask: mask})

	strokeCircle(canvas, float64(CenterX), float64(PhotoCenterY), PhotoRadius, PhotoBorder)
}

func fillCircle(dst draw.Image, cx, cy, radius float64) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	filler := rasterx.NewFiller(w, h, scanner)
	filler.SetColor(color.White)
	rasterx.AddCircle(cx, cy, radius, filler)
	filler.Draw()
}

func strokeCircle(dst draw.Image, cx, cy, radius float64, width int) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	stroker := rasterx.NewStroker(w, h, scanner)
	stroker.SetStroke(fixed.I(width), fixed.I(4), rasterx.ButtCap, nil, rasterx.RoundGap, rasterx.ArcClip)
	stroker.SetColor(color.White)
	rasterx.AddCircle(cx, cy, radius, stroker)
	stroker.Draw()
}

// drawRule draws the horizontal separator centred on RuleY
func drawRule(dst draw.Image) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	filler := rasterx.NewFiller(w, h, scanner)
	filler.SetColor(color.White)
	half := float64(RuleWidth) / 2
	rasterx.AddRect(RuleLeft, RuleY-half, RuleRight, RuleY+half, 0, filler)
	filler.Draw()
}
