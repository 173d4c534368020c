package sanitizer

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxFilenameBytes matches the common filesystem limit.
	MaxFilenameBytes = 255
	// FallbackFilename replaces names that sanitize to nothing.
	FallbackFilename = "file"
)

// Filename turns a client-supplied upload name into a safe display name:
// directory components, markup, control and reserved characters are removed,
// the result is NFC-normalized and capped at MaxFilenameBytes with the
// extension preserved.
func Filename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = StripHTML(name)
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	space := false
	for _, r := range name {
		switch {
		case r == utf8.RuneError, unicode.IsControl(r), strings.ContainsRune(`<>:"/\|?*`, r):
			continue
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}

	name = strings.Trim(b.String(), " .")
	if name == "" {
		return FallbackFilename
	}
	return truncate(name, MaxFilenameBytes)
}

func truncate(name string, limit int) string {
	if len(name) <= limit {
		return name
	}

	ext := path.Ext(name)
	if len(ext) >= limit/2 {
		ext = ""
	}
	stem := name[:len(name)-len(ext)]

	budget := limit - len(ext)
	for len(stem) > budget {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	return strings.TrimRight(stem, " .") + ext
}
