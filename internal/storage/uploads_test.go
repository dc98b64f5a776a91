package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSave_GeneratesStorageName(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	name, err := store.Save("my report.PDF", strings.NewReader("contents"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if strings.Contains(name, "my report") {
		t.Errorf("client filename leaked into storage name: %q", name)
	}
	if !strings.HasSuffix(name, ".pdf") {
		t.Errorf("expected sanitized .pdf extension, got %q", name)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("failed to read stored file: %v", err)
	}
	if string(data) != "contents" {
		t.Errorf("unexpected stored contents: %q", data)
	}

	// Same original name must not collide
	name2, err := store.Save("my report.PDF", strings.NewReader("other"))
	if err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}
	if name2 == name {
		t.Errorf("expected distinct storage names, both %q", name)
	}
}

func TestSave_HostileFilenames(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	for _, original := range []string{
		"../../etc/passwd",
		"..\\..\\boot.ini",
		"no-extension",
		"trailing.",
		"weird.<script>",
	} {
		name, err := store.Save(original, strings.NewReader("x"))
		if err != nil {
			t.Fatalf("Save(%q) returned error: %v", original, err)
		}
		if name != filepath.Base(name) {
			t.Errorf("Save(%q) produced path-like name %q", original, name)
		}
		if strings.ContainsAny(name, "<>\\/") {
			t.Errorf("Save(%q) produced unsanitized name %q", original, name)
		}
	}
}

func TestOpen_RejectsPathTraversal(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := store.Open("../secret"); err == nil {
		t.Error("expected error for path-like name")
	}
}

func TestOrphanedFiles(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	kept, err := store.Save("kept.txt", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	orphan, err := store.Save("orphan.txt", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	orphans, err := store.OrphanedFiles(map[string]bool{kept: true})
	if err != nil {
		t.Fatalf("OrphanedFiles returned error: %v", err)
	}
	if len(orphans) != 1 || orphans[0] != orphan {
		t.Errorf("expected [%q], got %v", orphan, orphans)
	}
}
