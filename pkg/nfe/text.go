package nfe

import (
	"strings"
	"unicode/utf8"
)

// IsXMLChar indica si r es un Char de XML 1.0 (tab, LF, CR y los rangos
// #x20-#xD7FF, #xE000-#xFFFD, #x10000-#x10FFFF).
func IsXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}

// ValidXMLText indica si s es UTF-8 válido y solo contiene caracteres XML.
func ValidXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !IsXMLChar(r) {
			return false
		}
	}
	return true
}

// StripInvalidXML descarta los bytes UTF-8 inválidos y los caracteres que XML 1.0 no admite.
func StripInvalidXML(s string) string {
	if ValidXMLText(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if !IsXMLChar(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}
