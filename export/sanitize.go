package export

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLen = 60 // whole file name, extension included
	maxExtLen  = 10
)

var unsafeChars = regexp.MustCompile(`[^\w.\-]`)

// SanitizeFilename normalizes an arbitrary source string (URL, path, or
// bare file name) into a safe single path segment: percent-decoded, query
// and fragment stripped, reduced to its final path element, unsafe
// characters replaced with underscores, and bounded to maxNameLen while
// keeping the extension. The result is never empty and never contains a
// path separator; fallback (plus a random token as a last resort) is
// substituted when nothing usable remains.
func SanitizeFilename(raw, fallback string) string {
	if fallback == "" {
		fallback = "image"
	}

	decoded := raw
	if d, err := url.PathUnescape(raw); err == nil {
		decoded = d
	}
	if i := strings.IndexAny(decoded, "?#"); i >= 0 {
		decoded = decoded[:i]
	}

	// Windows-style references show up in stored configs; normalize before
	// taking the final path segment.
	base := path.Base(strings.ReplaceAll(decoded, `\`, "/"))
	if strings.TrimSpace(base) == "" || base == "." || base == ".." || base == "/" {
		base = fallback
	}

	name := unsafeChars.ReplaceAllString(base, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = fallback
	}

	if len(name) > maxNameLen {
		stem, ext := splitExt(name)
		if len(ext) > maxExtLen {
			ext = ext[:maxExtLen]
		}
		keep := maxNameLen - len(ext)
		if keep < 1 {
			keep = 1
		}
		if len(stem) > keep {
			stem = stem[:keep]
		}
		name = stem + ext
	}

	if name == "" {
		return fallback + "_" + uuid.NewString()[:8] + ".img"
	}
	return name
}

// splitExt splits "name.ext" into ("name", ".ext"); a leading dot or a
// missing dot yields an empty extension.
func splitExt(s string) (stem, ext string) {
	i := strings.LastIndex(s, ".")
	if i <= 0 {
		return s, ""
	}
	return s[:i], s[i:]
}
