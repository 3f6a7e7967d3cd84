package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// writeArchive assembles index.html, the stylesheet, and all resolved
// assets into a ZIP and writes it to outPath in one atomic step, so a
// failed export never leaves a partial artifact behind. A missing
// stylesheet is only a warning; any other write failure is fatal because
// the archive would be silently incomplete.
func (e *Exporter) writeArchive(outPath, html string, assets []asset) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("export: create output dir: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeEntry(zw, "index.html", []byte(html)); err != nil {
		return err
	}

	if e.cfg.CSSPath != "" {
		css, err := os.ReadFile(e.cfg.CSSPath)
		if err != nil {
			e.logger.Warn("stylesheet missing, archive written without it",
				"path", e.cfg.CSSPath, "error", err)
		} else if err := writeEntry(zw, filepath.Base(e.cfg.CSSPath), css); err != nil {
			return err
		}
	}

	for _, a := range assets {
		if err := writeEntry(zw, e.cfg.ImageDir+"/"+a.Name, a.Data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("export: finalize archive: %w", err)
	}

	if err := atomic.WriteFile(outPath, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("export: write archive %s: %w", outPath, err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("export: add %s to archive: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export: write %s: %w", name, err)
	}
	return nil
}
