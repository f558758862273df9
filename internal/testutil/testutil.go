// Package testutil provides shared test helpers for catalogs, tab libraries
// and tab documents.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/starford/lickdex/internal/catalog"
	"github.com/starford/lickdex/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lickdex-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary directory with a storage provider on it.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TabFile returns a tab document titled title. Track 0 is a clean guitar
// playing A B A, where A is a quarter C then a quarter E and B is a quarter
// rest. Track 1 is a four-string bass and is never analyzed.
func TabFile(title string) []byte {
	return []byte(fmt.Sprintf(`title: %q
artist: Tester
album: Demo
year: "1999"
tempo: 100
tracks:
  - name: Lead
    instrument: 27
    strings: [E4, B3, G3, D3, A2, E2]
    measures:
      - voices:
          - - {duration: 4, notes: [{string: 2, fret: 1}]}
            - {duration: 4, notes: [{string: 1, fret: 0}]}
      - voices:
          - - {duration: 4}
      - voices:
          - - {duration: 4, notes: [{string: 2, fret: 1}]}
            - {duration: 4, notes: [{string: 1, fret: 0}]}
  - name: Bass
    instrument: 33
    strings: [G2, D2, A1, E1]
    measures:
      - voices:
          - - {duration: 1, notes: [{string: 4, fret: 0}]}
`, title))
}

// MalformedTabFile returns a single-track document whose second measure
// frets a seventh string.
func MalformedTabFile(title string) []byte {
	return []byte(fmt.Sprintf(`title: %q
tracks:
  - name: Rhythm
    strings: [E4, B3, G3, D3, A2, E2]
    measures:
      - voices:
          - - {duration: 2, notes: [{string: 6, fret: 3}]}
      - voices:
          - - {duration: 2, notes: [{string: 7, fret: 3}]}
      - voices:
          - - {duration: 2, notes: [{string: 6, fret: 3}]}
`, title))
}

// MultiGuitarTabFile returns a document titled title with n clean guitar
// tracks. Every track plays A B A (as in TabFile) followed by a quarter note
// on the first string at fret i, where i is the track index.
func MultiGuitarTabFile(title string, n int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "title: %q\nartist: Tester\ntracks:\n", title)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `  - name: Guitar %d
    instrument: 27
    strings: [E4, B3, G3, D3, A2, E2]
    measures:
      - voices:
          - - {duration: 4, notes: [{string: 2, fret: 1}]}
            - {duration: 4, notes: [{string: 1, fret: 0}]}
      - voices:
          - - {duration: 4}
      - voices:
          - - {duration: 4, notes: [{string: 2, fret: 1}]}
            - {duration: 4, notes: [{string: 1, fret: 0}]}
      - voices:
          - - {duration: 4, notes: [{string: 1, fret: %d}]}
`, i, i)
	}
	return []byte(b.String())
}
