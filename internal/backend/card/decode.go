package card

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	svgFormat = "svg"

	defaultSVGWidth  = 512
	defaultSVGHeight = 512

	// MaxSVGSide bounds both sides of a rasterized SVG photo
	MaxSVGSide = 2048
	// MaxSourcePixels bounds the pixel count of a raster photo before it is decoded
	MaxSourcePixels = 40_000_000
)

// SourceImage describes a decoded upload. Only the dimensions take part in layout.
type SourceImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// AspectRatio returns width divided by height
func (s *SourceImage) AspectRatio() float64 {
	return float64(s.Width) / float64(s.Height)
}

// DecodeSource decodes a raster or SVG upload. SVG files without an explicit
// size are rasterized at svgW x svgH.
func DecodeSource(data []byte, svgW, svgH int) (*SourceImage, image.Image, error) {
	if len(data) == 0 {
		return nil, nil, newRenderError(ReasonMissingInput, "photo is required")
	}

	if isSVGData(data) {
		img, err := rasterizeSVG(data, svgW, svgH)
		if err != nil {
			return nil, nil, &RenderError{Reason: ReasonDecodeFailure, Err: err}
		}
		b := img.Bounds()
		return &SourceImage{Data: data, Format: svgFormat, Width: b.Dx(), Height: b.Dy()}, img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Error("card: failed to read photo header", "input_size_bytes", len(data), "error", err)
		return nil, nil, newRenderError(ReasonDecodeFailure, "failed to decode photo: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, nil, newRenderError(ReasonDecodeFailure, "photo is too large (%dx%d), at most %d pixels are accepted",
			cfg.Width, cfg.Height, MaxSourcePixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Error("card: failed to decode photo", "input_size_bytes", len(data), "error", err)
		return nil, nil, newRenderError(ReasonDecodeFailure, "failed to decode photo: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, nil, newRenderError(ReasonDecodeFailure, "photo has empty bounds %dx%d", b.Dx(), b.Dy())
	}

	slog.Debug("card: decoded photo",
		"format", format,
		"width", b.Dx(),
		"height", b.Dy())

	return &SourceImage{Data: data, Format: format, Width: b.Dx(), Height: b.Dy()}, img, nil
}

// DetectFormat reports the short format name of an upload ("png", "jpeg", "svg", ...)
func DetectFormat(data []byte) (string, error) {
	if isSVGData(data) {
		return svgFormat, nil
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to detect image format: %w", err)
	}
	return format, nil
}

func rasterizeSVG(data []byte, fallbackW, fallbackH int) (*image.RGBA, error) {
	w, h, ok := parseSvgExplicitSize(data)
	if !ok {
		w, h = fallbackW, fallbackH
		if w <= 0 || h <= 0 {
			w, h = defaultSVGWidth, defaultSVGHeight
		}
	}
	if w > MaxSVGSide || h > MaxSVGSide {
		return nil, fmt.Errorf("SVG size %dx%d exceeds %dx%d", w, h, MaxSVGSide, MaxSVGSide)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)

	slog.Debug("card: rasterized SVG photo", "width", w, "height", h)
	return dst, nil
}

// isSVGData inspects the first 4KB for an <svg> tag or the SVG namespace
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := min(len(data), 4096)
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte(`xmlns="http://www.w3.org/2000/svg"`))
}

// parseSvgExplicitSize reads width and height from the root <svg> tag.
// viewBox is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := min(len(data), 8192)
	s := bytes.ToLower(data[:n])
	i := bytes.Index(s, []byte("<svg"))
	if i < 0 {
		return 0, 0, false
	}
	tag := s[i:]
	if j := bytes.IndexByte(tag, '>'); j >= 0 {
		tag = tag[:j]
	}

	w, wOk := parseNumericAttr(string(tag), "width")
	h, hOk := parseNumericAttr(string(tag), "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr extracts the leading integer of a quoted attribute, e.g. width="120px".
// Values above MaxSVGSide saturate instead of overflowing.
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := 0
	for {
		idx := strings.Index(tag[pos:], attr+"=")
		if idx < 0 {
			return 0, false
		}
		start := pos + idx
		// skip matches like stroke-width=
		if start > 0 && tag[start-1] != ' ' && tag[start-1] != '\t' && tag[start-1] != '\n' {
			pos = start + len(attr)
			continue
		}
		valStart := start + len(attr) + 1
		if valStart >= len(tag) {
			return 0, false
		}
		quote := tag[valStart]
		if quote != '"' && quote != '\'' {
			return 0, false
		}
		num, found := 0, false
		for k := valStart + 1; k < len(tag) && tag[k] != quote; k++ {
			ch := tag[k]
			if ch < '0' || ch > '9' {
				break
			}
			found = true
			if num <= MaxSVGSide {
				num = num*10 + int(ch-'0')
			}
		}
		if !found || num <= 0 {
			return 0, false
		}
		return num, true
	}
}
