package export

import "testing"

func TestNamerUniqueSuffixes(t *testing.T) {
	n := newNamer()

	if got := n.unique("icon.png"); got != "icon.png" {
		t.Fatalf("first assignment = %q, want icon.png", got)
	}
	if got := n.unique("icon.png"); got != "icon_1.png" {
		t.Fatalf("second assignment = %q, want icon_1.png", got)
	}
	if got := n.unique("icon.png"); got != "icon_2.png" {
		t.Fatalf("third assignment = %q, want icon_2.png", got)
	}
}

func TestNamerUniqueNeverRepeats(t *testing.T) {
	n := newNamer()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name := n.unique("photo.jpg")
		if seen[name] {
			t.Fatalf("unique returned %q twice", name)
		}
		seen[name] = true
	}
}

func TestNamerUniqueEmptyBase(t *testing.T) {
	n := newNamer()
	if got := n.unique(""); got != "image" {
		t.Fatalf("unique(\"\") = %q, want image", got)
	}
	if got := n.unique(""); got != "image_1" {
		t.Fatalf("second unique(\"\") = %q, want image_1", got)
	}
}

func TestNamerLookupRecord(t *testing.T) {
	n := newNamer()
	if _, ok := n.lookup("https://example.com/a.png"); ok {
		t.Fatal("lookup on empty namer should miss")
	}
	n.record("https://example.com/a.png", "a.png")
	name, ok := n.lookup("https://example.com/a.png")
	if !ok || name != "a.png" {
		t.Fatalf("lookup = %q, %v, want a.png, true", name, ok)
	}
}
