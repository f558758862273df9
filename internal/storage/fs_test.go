package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/lickdex/internal/checksum"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	content := []byte("title: x\n")
	if err := s.Write("song.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("song.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("a/b/c.yaml", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, _ := s.Read("a/b/c.yaml"); string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("del.yaml", []byte("bye"))
	if err := s.Delete("del.yaml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("read after delete err = %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.yaml", []byte("a"))
	_ = s.Write("sub/b.yml", []byte("b"))
	_ = s.Write("c.tab", []byte("c"))
	_ = s.Write("readme.txt", []byte("not a tab"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for _, it := range items {
		if it.Path == "a.yaml" && it.Hash != checksum.FileHash([]byte("a")) {
			t.Errorf("hash = %q", it.Hash)
		}
	}
}

func TestIsTabFile(t *testing.T) {
	for name, want := range map[string]bool{
		"x.yaml": true, "x.YML": true, "x.tab": true, "x.gp5": false, "x": false,
	} {
		if IsTabFile(name) != want {
			t.Errorf("IsTabFile(%q) = %v", name, !want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)
	for _, p := range []string{"../../etc/passwd", "../outside.yaml", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("atomic.yaml", []byte("original"))
	if err := s.Write("atomic.yaml", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, _ := s.Read("atomic.yaml"); string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".lickdex-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_Errors(t *testing.T) {
	if _, err := NewFS("/tmp/lickdex-does-not-exist-" + t.Name()); err == nil {
		t.Error("expected error for non-existent dir")
	}
	f, _ := os.CreateTemp("", "lickdex-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
