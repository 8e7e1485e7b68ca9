// Package fonts provides embedded font files for card rendering.
//
// The fonts are embedded directly into the binary using go:embed,
// so the default card needs no font files on disk.
package fonts

import (
	_ "embed"
)

// Amiri is the Amiri Naskh typeface from https://github.com/alif-type/amiri,
// licensed under the SIL Open Font License 1.1. It covers the Arabic script
// including the contextual forms and marks the invocation needs.

//go:embed amiri-regular.ttf
var amiriTTF []byte

// AmiriTTF returns the Amiri Regular TTF data.
func AmiriTTF() []byte {
	return amiriTTF
}

// AmiriFamily is the family name stored in the font's name table.
const AmiriFamily = "Amiri"
