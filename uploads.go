package pageuser

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/BouoniManar/Exportation-Template/export"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 85
	maxUploadSize = 10 << 20 // 10MB
)

var allowedUploadTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// handleUpload accepts an image file for the given category (logo, banner,
// gallery, ...) and stores it under the project uploads directory. Raster
// images wider than maxImageWidth are scaled down before saving.
func (a *App) handleUpload(c echo.Context) error {
	category := export.SanitizeFilename(c.Param("category"), "misc")

	file, err := c.FormFile("imageFile")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return err
	}
	if len(data) > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large (max 10MB)")
	}

	contentType := http.DetectContentType(data)
	if contentType == "text/xml; charset=utf-8" && bytes.Contains(data, []byte("<svg")) {
		contentType = "image/svg+xml"
	}
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported file type")
	}

	switch contentType {
	case "image/jpeg", "image/png", "image/gif":
		resized, err := downscale(data, contentType)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid image: "+err.Error())
		}
		data = resized
	}

	base := export.SanitizeFilename(file.Filename, "upload")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)

	dir := filepath.Join(a.Config.ProjectRoot, a.Config.UploadDir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}

	relPath := "/" + a.Config.UploadDir + "/" + category + "/" + name
	a.logger.Info("file uploaded", "category", category, "name", name, "bytes", len(data))
	return c.JSON(http.StatusCreated, map[string]string{
		"filePath": relPath,
		"filename": name,
	})
}

// downscale re-encodes a raster image in its original format, scaling it
// down when wider than maxImageWidth.
func downscale(data []byte, contentType string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	} else {
		// Small enough already, keep the original bytes untouched.
		return data, nil
	}

	var buf bytes.Buffer
	switch contentType {
	case "image/png":
		err = png.Encode(&buf, img)
	case "image/gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
