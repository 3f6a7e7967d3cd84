package export

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const userAgent = "PageUser-TemplateGenerator/1.0"

// asset is one resolved entry destined for the archive's image directory:
// either real image bytes, or a textual error marker standing in for an
// image that could not be fetched or copied.
type asset struct {
	Name    string // file name inside the image directory
	Data    []byte
	IsError bool
}

// knownImageExts are extensions trusted as-is on downloaded files; anything
// else is replaced by the extension inferred from the Content-Type.
var knownImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".webp": true, ".svg": true,
}

// resolve turns one image reference into an asset. It never returns an
// error: every failure mode becomes an error-marker asset so that a single
// bad reference cannot abort the export.
func (e *Exporter) resolve(ref string) asset {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return e.resolveRemote(ref)
	}
	return e.resolveLocal(ref)
}

func (e *Exporter) resolveRemote(rawURL string) asset {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return e.downloadError(rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return e.downloadError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return e.downloadError(rawURL, fmt.Errorf("unexpected status %s", resp.Status))
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	// A 200 carrying an HTML body is almost always a soft error page, not
	// an image.
	if !strings.Contains(contentType, "image") && strings.Contains(contentType, "html") {
		e.logger.Warn("remote reference returned html instead of an image",
			"url", rawURL, "content_type", contentType)
		return asset{
			Name: "ERROR_NON_IMAGE_URL_" + urlErrorBase(rawURL) + ".txt",
			Data: fmt.Appendf(nil, "Failed to download image content from: %s\nReceived Content-Type: %s",
				rawURL, contentType),
			IsError: true,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return e.downloadError(rawURL, err)
	}

	return asset{Name: remoteFilename(rawURL, contentType), Data: body}
}

func (e *Exporter) downloadError(rawURL string, err error) asset {
	e.logger.Warn("image download failed", "url", rawURL, "error", err)
	return asset{
		Name:    "ERROR_DOWNLOAD_" + urlErrorBase(rawURL) + ".txt",
		Data:    fmt.Appendf(nil, "Failed to download: %s\nError: %v", rawURL, err),
		IsError: true,
	}
}

func (e *Exporter) resolveLocal(ref string) asset {
	abs := filepath.Join(e.cfg.ProjectRoot, filepath.FromSlash(ref))
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		e.logger.Warn("local image not found", "ref", ref, "path", abs)
		return asset{
			Name:    "NOT_FOUND_" + SanitizeFilename(ref, "image") + ".txt",
			Data:    fmt.Appendf(nil, "Not found: %s\nAbs path: %s", ref, abs),
			IsError: true,
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		e.logger.Warn("local image unreadable", "ref", ref, "path", abs, "error", err)
		return asset{
			Name:    "ERROR_COPYING_" + SanitizeFilename(ref, "image") + ".txt",
			Data:    fmt.Appendf(nil, "Error copying: %s\nAbs path: %s\n%v", ref, abs, err),
			IsError: true,
		}
	}

	return asset{Name: SanitizeFilename(filepath.Base(abs), "image"), Data: data}
}

// remoteFilename builds an archive file name for a downloaded image from
// the URL's final path segment and the response Content-Type. The
// Content-Type wins over an absent or untrusted URL extension.
func remoteFilename(rawURL, contentType string) string {
	basename := ""
	if u, err := url.Parse(rawURL); err == nil {
		basename = path.Base(u.Path)
		if basename == "/" || basename == "." {
			basename = ""
		}
	}
	if basename == "" {
		basename = "downloaded_image"
	}
	name := SanitizeFilename(basename, "downloaded_image")

	guessed := extensionForType(contentType)
	stem, ext := splitExt(name)
	switch {
	case ext == "" || ext == ".":
		name = stem + guessed
	case !knownImageExts[strings.ToLower(ext)] && guessed != ".img":
		name = stem + guessed
	}
	return name
}

// extensionForType maps a MIME type to a file extension, preferring the
// conventional spelling where mime reports several, with ".img" as the
// generic fallback.
func extensionForType(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ".img"
	}
	for _, preferred := range []string{".jpg", ".png", ".gif", ".webp", ".svg"} {
		for _, ext := range exts {
			if ext == preferred {
				return ext
			}
		}
	}
	return exts[0]
}

// urlErrorBase derives the sanitized basename used in error-marker names
// for a remote reference, with a short random token when the URL has no
// usable path segment.
func urlErrorBase(rawURL string) string {
	basename := ""
	if u, err := url.Parse(rawURL); err == nil {
		basename = path.Base(u.Path)
		if basename == "/" || basename == "." {
			basename = ""
		}
	}
	return SanitizeFilename(basename, "image")
}
