// Package export turns a site's JSON configuration into a downloadable
// static-site bundle. It walks the configuration tree, relocates every
// referenced image (remote download or local upload copy) into a
// deduplicated archive file set, rewrites the configuration to point at
// the relocated files, renders the final HTML through the site's template
// set, and packages HTML + stylesheet + images into one ZIP artifact.
//
// A single image that fails to resolve never aborts an export: it degrades
// to a .txt error marker inside the archive. Template and archive-write
// failures are fatal.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation errors returned by Generate before any I/O happens.
var (
	ErrEmptyConfig     = errors.New("export: empty configuration envelope")
	ErrEmptySiteConfig = errors.New("export: no data under site key")
)

const fetchTimeout = 20 * time.Second

// Config holds the filesystem layout an Exporter works against.
type Config struct {
	TemplateRoot string `yaml:"template_root"`       // directory containing the site template set
	TemplateBase string `yaml:"template_base"`       // base template file name (default "base.html")
	TemplateComp string `yaml:"template_components"` // shared components template, "" to skip
	CSSPath      string `yaml:"css_path"`            // stylesheet copied into the archive root
	OutputDir    string `yaml:"output_dir"`          // directory ZIP artifacts are written to
	ImageDir     string `yaml:"image_dir"`           // image subdirectory inside the archive (default "img")
	ProjectRoot  string `yaml:"project_root"`        // root for resolving local image references
}

func (c *Config) setDefaults() {
	if c.TemplateBase == "" {
		c.TemplateBase = "base.html"
	}
	if c.ImageDir == "" {
		c.ImageDir = "img"
	}
	if c.OutputDir == "" {
		c.OutputDir = "generated_zips"
	}
}

// Report summarizes image handling for one export.
type Report struct {
	ImagesAdded   int // payloads written into the archive
	ImagesErrored int // references degraded to error markers
	ImagesReused  int // references served from the per-export memo
}

// Exporter generates ZIP artifacts from configuration envelopes. It is
// safe for concurrent use: all per-export state lives on the call stack.
type Exporter struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Exporter for the given layout. A nil logger discards.
func New(cfg Config, logger *slog.Logger) *Exporter {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{
		cfg:    cfg,
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
		now:    time.Now,
	}
}

// Generate runs one full export for the given configuration envelope: a
// mapping whose sole key identifies the site and whose value is the site's
// configuration tree. It returns the absolute path of the written ZIP.
//
// The caller's envelope is never mutated; the pipeline works on a deep copy.
func (e *Exporter) Generate(envelope map[string]any) (string, Report, error) {
	if len(envelope) == 0 {
		return "", Report{}, ErrEmptyConfig
	}
	siteKey := firstKey(envelope)
	siteCfg, ok := envelope[siteKey].(map[string]any)
	if !ok || len(siteCfg) == 0 {
		return "", Report{}, fmt.Errorf("%w %q", ErrEmptySiteConfig, siteKey)
	}

	outName := e.artifactName(siteKey)
	outPath, err := filepath.Abs(filepath.Join(e.cfg.OutputDir, outName))
	if err != nil {
		return "", Report{}, fmt.Errorf("export: resolve output path: %w", err)
	}

	log := e.logger.With("site", siteKey, "artifact", outName)
	log.Info("starting export")

	tree := deepCopy(siteCfg).(map[string]any)
	assets, report := e.relocateImages(tree)
	if report.ImagesErrored > 0 {
		log.Warn("some images could not be resolved",
			"errored", report.ImagesErrored, "added", report.ImagesAdded)
	}

	html, err := e.render(tree)
	if err != nil {
		return "", report, err
	}

	if err := e.writeArchive(outPath, html, assets); err != nil {
		return "", report, err
	}

	log.Info("export complete",
		"added", report.ImagesAdded,
		"errored", report.ImagesErrored,
		"reused", report.ImagesReused)
	return outPath, report, nil
}

// artifactName derives a collision-free ZIP file name from the site key.
// The unix timestamp keeps repeated exports apart; the random suffix keeps
// same-second concurrent exports apart.
func (e *Exporter) artifactName(siteKey string) string {
	key := strings.ToLower(strings.TrimSpace(siteKey))
	key = strings.ReplaceAll(key, " ", "_")
	if key == "" {
		key = "site"
	}
	return fmt.Sprintf("%s_template_%d_%s.zip",
		key, e.now().Unix(), uuid.NewString()[:8])
}

// firstKey returns the lexicographically smallest key so that a malformed
// multi-key envelope still exports deterministically.
func firstKey(m map[string]any) string {
	first := ""
	for k := range m {
		if first == "" || k < first {
			first = k
		}
	}
	return first
}
