package export

import (
	"fmt"
	"html/template"
	"path"
	"path/filepath"
	"strings"
)

// render binds the rewritten configuration tree to the site's template set
// and returns the final HTML document. The tree is exposed to templates as
// .Data. Any template failure is fatal for the export: it signals a
// structural mismatch between the template set and the configuration, not
// a per-asset problem.
func (e *Exporter) render(tree map[string]any) (string, error) {
	files := []string{filepath.Join(e.cfg.TemplateRoot, e.cfg.TemplateBase)}
	if e.cfg.TemplateComp != "" {
		files = append(files, filepath.Join(e.cfg.TemplateRoot, e.cfg.TemplateComp))
	}

	tmpl, err := template.New(e.cfg.TemplateBase).Funcs(template.FuncMap{
		"basename": path.Base,
	}).ParseFiles(files...)
	if err != nil {
		return "", fmt.Errorf("export: load templates from %s: %w", e.cfg.TemplateRoot, err)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, e.cfg.TemplateBase, map[string]any{"Data": tree}); err != nil {
		return "", fmt.Errorf("export: render %s: %w", e.cfg.TemplateBase, err)
	}
	return b.String(), nil
}
