package card

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	gtfont "github.com/go-text/typesetting/font"
	"github.com/jo-hoe/takziah/internal/backend/card/fonts"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontSet holds the parsed typefaces. Parsed fonts are shared between renders,
// faces are not: every render opens its own faces.
type FontSet struct {
	Regular *opentype.Font
	Bold    *opentype.Font
	Italic  *opentype.Font
	// Invocation is shaped before drawing so Arabic letters take their joined forms
	Invocation *gtfont.Font
}

// LoadFontSet parses the embedded fonts. The Arabic invocation uses the
// embedded Amiri typeface unless invocationFontPath names another font file.
func LoadFontSet(invocationFontPath string) (*FontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	italic, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse italic font: %w", err)
	}

	set := &FontSet{Regular: regular, Bold: bold, Italic: italic}
	if invocationFontPath == "" {
		set.Invocation, err = parseShapingFont(fonts.AmiriTTF())
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s font: %w", fonts.AmiriFamily, err)
		}
		return set, nil
	}

	data, err := os.ReadFile(invocationFontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read invocation font %s: %w", invocationFontPath, err)
	}
	set.Invocation, err = parseShapingFont(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invocation font %s: %w", invocationFontPath, err)
	}
	slog.Info("card: loaded invocation font", "path", invocationFontPath)
	return set, nil
}

func parseShapingFont(data []byte) (*gtfont.Font, error) {
	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return face.Font, nil
}

// faceCache opens faces lazily for a single render and closes them together
type faceCache struct {
	faces []font.Face
}

func (c *faceCache) open(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face of size %.0f: %w", size, err)
	}
	c.faces = append(c.faces, face)
	return face, nil
}

func (c *faceCache) close() {
	for _, face := range c.faces {
		_ = face.Close()
	}
	c.faces = nil
}
