package card

import (
	"strings"

	"golang.org/x/image/font"
)

// Card geometry in canvas pixels
const (
	CanvasWidth  = 600
	CanvasHeight = 800
	CenterX      = CanvasWidth / 2

	PhotoCenterY    = 300
	PhotoRadius     = 120
	CoverMultiplier = 2.4
	PhotoBorder     = 3

	TitleBaseline      = 60
	InvocationBaseline = 120
	NameBaseline       = 460
	DatesBaseline      = 490
	InfoBaseline       = 515

	RuleY     = 560
	RuleLeft  = 50
	RuleRight = CanvasWidth - 50
	RuleWidth = 2

	MessageBaseline   = 600
	MessageLineHeight = 30
	MessageMaxWidth   = CanvasWidth - 60
	ClosingOffset     = 80

	// MinEncodedSize rejects exports that are too small to hold a drawn card
	MinEncodedSize = 1000
)

const (
	Title       = "AL FATIHAH"
	Invocation  = "إِنَّا لِلَّهِ وَإِنَّا إِلَيْهِ رَاجِعُونَ"
	ClosingText = "Our Condolences"
	titleSize   = 32
	invokeSize  = 28
	nameSize    = 28
	datesSize   = 18
	infoSize    = 16
	messageSize = 20
	closingSize = 36
)

// CoverFit scales a photo so that it covers a circle of the given radius.
// Both returned sides are at least radius*k.
func CoverFit(photoWidth, photoHeight int, radius, k float64) (drawWidth, drawHeight float64) {
	side := radius * k
	aspectRatio := float64(photoWidth) / float64(photoHeight)
	drawWidth = side
	drawHeight = drawWidth / aspectRatio
	if drawHeight < side {
		drawHeight = side
		drawWidth = drawHeight * aspectRatio
	}
	return drawWidth, drawHeight
}

// WrapText breaks message into lines no wider than maxWidth as measured with face.
// Words are separated by single spaces. A word wider than maxWidth keeps a line of its own.
func WrapText(face font.Face, message string, maxWidth float64) []string {
	words := strings.Split(message, " ")
	lines := make([]string, 0, 4)
	line := ""
	for _, word := range words {
		testLine := line + word + " "
		if measure(face, testLine) > maxWidth && strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
			line = word + " "
			continue
		}
		line = testLine
	}
	return append(lines, strings.TrimSpace(line))
}

func measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}
