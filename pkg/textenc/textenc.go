package textenc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/unicode/norm"
)

const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
	EncodingLossy    = "lossy"

	// MaxNameLength is the byte limit applied to sanitized path segments
	MaxNameLength = 200
	// FallbackName replaces names that sanitize to nothing
	FallbackName = "unnamed"
)

// ErrUnsafePath is returned for entry paths that would escape their destination
var ErrUnsafePath = errors.New("unsafe path")

const illegalChars = `<>:"|?*/\`

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// DecodeName turns raw archive entry name bytes into a string and reports
// the encoding used. UTF-8 wins when valid, Shift-JIS (CP932) is tried next
// and anything else is decoded lossily.
func DecodeName(raw []byte) (string, string) {
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8
	}

	if decoded, ok := decodeStrict(japanese.ShiftJIS, raw); ok {
		return decoded, EncodingShiftJIS
	}

	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), EncodingLossy
}

// Repair recovers names that were stored as Shift-JIS or UTF-8 bytes but got
// decoded as CP437, the ZIP default. Names that do not round trip into
// Japanese text are returned unchanged.
func Repair(name string) string {
	if isASCII(name) {
		return name
	}

	raw, err := charmap.CodePage437.NewEncoder().String(name)
	if err != nil {
		return name
	}

	bytes := []byte(raw)
	if utf8.Valid(bytes) {
		if repaired := string(bytes); repaired != name && containsJapanese(repaired) {
			return repaired
		}
	}

	if repaired, ok := decodeStrict(japanese.ShiftJIS, bytes); ok && containsJapanese(repaired) {
		return repaired
	}
	return name
}

// Sanitize turns an arbitrary display name into a single safe path segment
func Sanitize(name string) string {
	name = Repair(norm.NFC.String(name))

	var builder strings.Builder
	builder.Grow(len(name))
	for _, r := range name {
		if r == utf8.RuneError || unicode.IsControl(r) || strings.ContainsRune(illegalChars, r) {
			builder.WriteRune('_')
			continue
		}
		builder.WriteRune(r)
	}

	sanitized := trimName(builder.String())
	base := sanitized
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	if _, reserved := reservedNames[strings.ToUpper(base)]; reserved {
		sanitized = "_" + sanitized
	}

	sanitized = trimName(truncate(sanitized, MaxNameLength))
	if sanitized == "" {
		return FallbackName
	}
	return sanitized
}

// SafeJoin joins an archive entry path onto root. Absolute paths, drive
// letters and parent references are rejected with ErrUnsafePath.
func SafeJoin(root, entry string) (string, error) {
	normalized := strings.ReplaceAll(entry, `\`, "/")
	if strings.HasPrefix(normalized, "/") || hasDriveLetter(normalized) || filepath.IsAbs(entry) {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafePath, entry)
	}

	var segments []string
	for _, segment := range strings.Split(normalized, "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %q escapes its destination", ErrUnsafePath, entry)
		}
		segments = append(segments, segment)
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: %q is empty", ErrUnsafePath, entry)
	}

	root = filepath.Clean(root)
	joined := filepath.Join(append([]string{root}, segments...)...)

	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes its destination", ErrUnsafePath, entry)
	}
	return joined, nil
}

// SanitizePath sanitizes every segment of a slash separated entry path
func SanitizePath(entry string) string {
	normalized := strings.ReplaceAll(entry, `\`, "/")

	var segments []string
	for _, segment := range strings.Split(normalized, "/") {
		if segment == "" || segment == "." || segment == ".." {
			segments = append(segments, segment)
			continue
		}
		segments = append(segments, Sanitize(segment))
	}
	return strings.Join(segments, "/")
}

func decodeStrict(enc encoding.Encoding, raw []byte) (string, bool) {
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}

	result := string(decoded)
	if strings.ContainsRune(result, utf8.RuneError) {
		return "", false
	}
	return result, true
}

func containsJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func hasDriveLetter(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func trimName(name string) string {
	return strings.TrimRight(strings.TrimSpace(name), ". ")
}

func truncate(name string, limit int) string {
	if len(name) <= limit {
		return name
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
