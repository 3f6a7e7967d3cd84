package export

import (
	"sort"
	"strings"
)

// imageKeys is the fixed set of mapping keys whose string values are
// treated as image references during the tree rewrite. The "image" key is
// special-cased in rewriteNode: it may also carry a nested {src: string}
// mapping.
var imageKeys = map[string]bool{
	"logo_url":        true,
	"src":             true,
	"icon":            true,
	"icon_url":        true,
	"image":           true,
	"image_url":       true,
	"backgroundImage": true,
	"button_icon":     true,
	"brand_logo_url":  true,
}

// relocateImages rewrites tree in place so every recognized image field
// holds the bare archive file name of its resolved asset, and returns the
// assets accumulated along the way. tree must be a deep copy owned by the
// caller. Traversal is depth-first with mapping keys visited in sorted
// order, so name assignment is deterministic for a given input.
func (e *Exporter) relocateImages(tree map[string]any) ([]asset, Report) {
	names := newNamer()
	var assets []asset
	var report Report
	e.rewriteNode(tree, names, &assets, &report)
	return assets, report
}

func (e *Exporter) rewriteNode(node any, names *namer, assets *[]asset, report *Report) {
	switch n := node.(type) {
	case map[string]any:
		for _, key := range sortedKeys(n) {
			value := n[key]

			ref, nested := imageReference(key, value)
			if ref != "" {
				name := e.processImage(ref, names, assets, report)
				if nested {
					value.(map[string]any)["src"] = name
				} else {
					n[key] = name
				}
				continue
			}

			switch value.(type) {
			case map[string]any, []any:
				e.rewriteNode(value, names, assets, report)
			}
		}
	case []any:
		for _, item := range n {
			switch item.(type) {
			case map[string]any, []any:
				e.rewriteNode(item, names, assets, report)
			}
		}
	}
}

// imageReference extracts the image reference carried by key/value, if
// any. nested reports the {image: {src: …}} form, where the rewrite goes
// into the inner mapping instead of replacing the value itself.
func imageReference(key string, value any) (ref string, nested bool) {
	if !imageKeys[key] {
		return "", false
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s), false
	}
	if key == "image" {
		if m, ok := value.(map[string]any); ok {
			if s, ok := m["src"].(string); ok {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// processImage resolves one reference (or reuses its memoized resolution)
// and returns the archive file name the configuration should point at.
func (e *Exporter) processImage(ref string, names *namer, assets *[]asset, report *Report) string {
	if name, ok := names.lookup(ref); ok {
		report.ImagesReused++
		return name
	}

	a := e.resolve(ref)
	// Markers run through the same uniqueness pass as real images so two
	// failing references with equal basenames cannot collide in the archive.
	a.Name = names.unique(a.Name)
	names.record(ref, a.Name)
	*assets = append(*assets, a)

	if a.IsError {
		report.ImagesErrored++
	} else {
		report.ImagesAdded++
	}
	return a.Name
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deepCopy clones a decoded-JSON value (maps, slices, scalars) so the
// rewrite never touches the caller's tree.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
