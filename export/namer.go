package export

import "fmt"

// namer owns the two pieces of per-export naming state: the memo from
// original reference string to assigned archive file name, and the set of
// names already placed in the archive's image directory. Both are scoped
// to a single Generate call and never shared.
type namer struct {
	processed map[string]string
	used      map[string]struct{}
}

func newNamer() *namer {
	return &namer{
		processed: make(map[string]string),
		used:      make(map[string]struct{}),
	}
}

// lookup reports whether reference ref was already resolved during this
// export, and if so under which archive file name.
func (n *namer) lookup(ref string) (string, bool) {
	name, ok := n.processed[ref]
	return name, ok
}

// record memoizes the archive file name assigned to reference ref.
func (n *namer) record(ref, name string) {
	n.processed[ref] = name
}

// unique reserves and returns a file name that is not yet present in the
// archive's image directory, appending _1, _2, … before the extension
// until base is free.
func (n *namer) unique(base string) string {
	stem, ext := splitExt(base)
	if stem == "" {
		stem = "image"
		base = stem + ext
	}
	name := base
	for counter := 1; ; counter++ {
		if _, taken := n.used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d%s", stem, counter, ext)
	}
	n.used[name] = struct{}{}
	return name
}
