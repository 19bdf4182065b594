package gender

import (
	"strings"
)

// maxNameLen bounds the normalized token length.
const maxNameLen = 50

var separatorReplacer = strings.NewReplacer("_", " ", ".", " ", "-", " ", "/", " ")

// NormalizeName reduces a raw display name or handle to the canonical
// first-name token: separators become spaces, the first whitespace-delimited
// token is kept and stripped to letters of the supported alphabets. If
// stripping empties the token (all-digit handles like "123"), the pre-strip
// token is kept so distinct handles stay distinct. Empty input yields empty
// output, which callers must treat as unclassifiable.
func NormalizeName(raw string) string {
	fields := strings.Fields(separatorReplacer.Replace(raw))
	if len(fields) == 0 {
		return ""
	}
	token := fields[0]

	stripped := strings.Map(func(r rune) rune {
		if isNameLetter(r) {
			return r
		}
		return -1
	}, token)
	if stripped == "" {
		stripped = token
	}

	runes := []rune(stripped)
	if len(runes) > maxNameLen {
		return string(runes[:maxNameLen])
	}
	return stripped
}

// CacheKey is the store key for a raw name: the lower-cased normalized token.
// Two entities with equal normalized first names share one cache entry.
func CacheKey(raw string) string {
	return strings.ToLower(NormalizeName(raw))
}

// isNameLetter reports whether r belongs to a supported alphabet: basic Latin
// letters plus the Arabic, Arabic Supplement and Arabic Extended-A blocks.
func isNameLetter(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= 0x0600 && r <= 0x06FF:
		return true
	case r >= 0x0750 && r <= 0x077F:
		return true
	case r >= 0x08A0 && r <= 0x08FF:
		return true
	}
	return false
}
