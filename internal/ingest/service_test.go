package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/lickdex/internal/apperr"
	"github.com/starford/lickdex/internal/canon"
	"github.com/starford/lickdex/internal/catalog"
	"github.com/starford/lickdex/internal/storage"
	"github.com/starford/lickdex/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testService(t *testing.T, opts Options) (*Service, *catalog.DB, *storage.FS) {
	t.Helper()
	db := testutil.TestDB(t)
	_, lib := testutil.TestLibrary(t)
	return NewService(db, lib, quietLogger(), opts), db, lib
}

func TestIngest_StoresSong(t *testing.T) {
	svc, _, _ := testService(t, Options{})
	ctx := context.Background()
	data := testutil.TabFile("Alpha")

	song, err := svc.Ingest(ctx, "alpha.yaml", data, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if song.Title != "Alpha" || song.Filename != "alpha.yaml" || song.Tempo != 100 {
		t.Errorf("song = %+v", song)
	}
	if len(song.Tracks) != 1 || song.Tracks[0].Name != "Lead" || song.Tracks[0].Instrument != "Clean guitar" {
		t.Fatalf("tracks = %+v", song.Tracks)
	}

	tr, err := svc.GetTrack(ctx, song.Tracks[0].ID, 0)
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	if tr.TotalDuration != "5/4" || tr.RestDuration != "1/4" || tr.MeasureCount != 3 {
		t.Errorf("track totals = %s %s %d", tr.TotalDuration, tr.RestDuration, tr.MeasureCount)
	}
	if len(tr.Measures) != 2 || tr.Measures[0].Match != "2/3" || tr.Measures[1].Match != "1/3" {
		t.Errorf("measures = %+v", tr.Measures)
	}
	if len(tr.Pitches) != 2 || tr.Pitches[0].Match != "2/5" || tr.Pitches[1].Match != "2/5" {
		t.Errorf("pitches = %+v", tr.Pitches)
	}

	stored, err := svc.SongFile(ctx, song.ID)
	if err != nil {
		t.Fatalf("SongFile: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Error("library copy differs from the uploaded file")
	}
}

func TestIngest_DuplicateHash(t *testing.T) {
	svc, _, _ := testService(t, Options{})
	ctx := context.Background()
	data := testutil.TabFile("Alpha")

	if _, err := svc.Ingest(ctx, "a.yaml", data, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ingest(ctx, "renamed.yaml", data, nil); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if _, total, _ := svc.ListSongs(ctx, 10, 0); total != 1 {
		t.Errorf("songs = %d, want 1", total)
	}
}

func TestIngest_MeasuresSharedAcrossSongs(t *testing.T) {
	svc, db, _ := testService(t, Options{})
	ctx := context.Background()

	a, err := svc.Ingest(ctx, "a.yaml", testutil.TabFile("Alpha"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ingest(ctx, "b.yaml", testutil.TabFile("Beta"), nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.CanonCount(ctx, canon.KindMeasure); n != 2 {
		t.Errorf("canonical measures = %d, want 2", n)
	}

	tr, _ := svc.GetTrack(ctx, a.Tracks[0].ID, 0)
	licks, err := svc.Licks(ctx, tr.Measures[0].MeasureID)
	if err != nil {
		t.Fatalf("Licks: %v", err)
	}
	if len(licks) != 2 {
		t.Errorf("licks = %d, want 2", len(licks))
	}
}

func TestIngest_ConcurrentSongsShareCanon(t *testing.T) {
	svc, db, _ := testService(t, Options{Workers: 4})
	ctx := context.Background()

	const songs, tracks = 6, 4
	errs := make([]error, songs)
	var wg sync.WaitGroup
	for i := 0; i < songs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := testutil.MultiGuitarTabFile(fmt.Sprintf("Song %d", i), tracks)
			song, err := svc.Ingest(ctx, fmt.Sprintf("song%d.yaml", i), data, nil)
			if err == nil && len(song.Tracks) != tracks {
				err = fmt.Errorf("stored %d tracks, want %d", len(song.Tracks), tracks)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("song %d: %v", i, err)
		}
	}

	// C, E, rest, then frets 1..3 on the first string.
	if n, _ := db.CanonCount(ctx, canon.KindBeat); n != 3+tracks-1 {
		t.Errorf("canonical beats = %d, want %d", n, 3+tracks-1)
	}
	// A, B, and one closing measure per track position.
	if n, _ := db.CanonCount(ctx, canon.KindMeasure); n != 2+tracks {
		t.Errorf("canonical measures = %d, want %d", n, 2+tracks)
	}

	list, total, err := svc.ListSongs(ctx, songs, 0)
	if err != nil || total != songs {
		t.Fatalf("songs = %d, %v", total, err)
	}
	song, err := svc.GetSong(ctx, list[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := svc.GetTrack(ctx, song.Tracks[0].ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	licks, err := svc.Licks(ctx, tr.Measures[0].MeasureID)
	if err != nil {
		t.Fatal(err)
	}
	if len(licks) != songs*tracks {
		t.Errorf("licks of the shared measure = %d, want %d", len(licks), songs*tracks)
	}
}

func TestIngest_TrackSelection(t *testing.T) {
	svc, _, _ := testService(t, Options{})
	ctx := context.Background()

	for name, sel := range map[string][]int{
		"bass":         {1},
		"out of range": {5},
		"negative":     {-1},
	} {
		if _, err := svc.Ingest(ctx, "x.yaml", testutil.TabFile(name), sel); !errors.Is(err, apperr.ErrInvalidTab) {
			t.Errorf("%s: err = %v, want ErrInvalidTab", name, err)
		}
	}

	song, err := svc.Ingest(ctx, "x.yaml", testutil.TabFile("dup"), []int{0, 0})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(song.Tracks) != 1 {
		t.Errorf("tracks = %d, want 1", len(song.Tracks))
	}
}

func TestIngest_MalformedRollsBack(t *testing.T) {
	svc, db, lib := testService(t, Options{})
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "bad.yaml", testutil.MalformedTabFile("Bad"), nil)
	if !errors.Is(err, apperr.ErrStringIndexOutOfRange) {
		t.Fatalf("err = %v, want ErrStringIndexOutOfRange", err)
	}
	var se *apperr.ScopedError
	if !errors.As(err, &se) || se.Measure != 1 || se.Beat != 0 {
		t.Errorf("scope = %+v", se)
	}
	if n, _ := db.CanonCount(ctx, canon.KindBeat); n != 0 {
		t.Errorf("beats left behind: %d", n)
	}
	if files, _ := lib.List(""); len(files) != 0 {
		t.Errorf("library files left behind: %v", files)
	}
}

func TestIngest_SkipMalformed(t *testing.T) {
	svc, _, _ := testService(t, Options{SkipMalformed: true})
	ctx := context.Background()

	song, err := svc.Ingest(ctx, "bad.yaml", testutil.MalformedTabFile("Bad"), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	tr, err := svc.GetTrack(ctx, song.Tracks[0].ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Skipped) != 1 || tr.Skipped[0] != 1 {
		t.Errorf("skipped = %v", tr.Skipped)
	}
	if len(tr.Measures) != 1 || tr.Measures[0].Match != "1" || len(tr.Measures[0].Indexes) != 2 {
		t.Errorf("measures = %+v", tr.Measures)
	}
}

func TestTabInfo(t *testing.T) {
	svc, _, _ := testService(t, Options{})
	info, err := svc.TabInfo(context.Background(), testutil.TabFile("Info"))
	if err != nil {
		t.Fatalf("TabInfo: %v", err)
	}
	if len(info) != 1 || info[0].Index != 0 || info[0].Measures != 3 {
		t.Fatalf("info = %+v", info)
	}
	want := []string{"E", "A", "D", "G", "B", "E"}
	for i, n := range want {
		if info[0].Tuning[i] != n {
			t.Errorf("tuning = %v, want %v", info[0].Tuning, want)
			break
		}
	}
	if _, err := svc.TabInfo(context.Background(), []byte("tracks: [")); !errors.Is(err, apperr.ErrInvalidTab) {
		t.Errorf("err = %v, want ErrInvalidTab", err)
	}
}

func TestAnalyze_DoesNotPersist(t *testing.T) {
	svc, db, _ := testService(t, Options{})
	ctx := context.Background()

	tracks, err := svc.Analyze(ctx, testutil.TabFile("Dry"), nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(tracks) != 1 || tracks[0].TotalDuration != "5/4" || tracks[0].Measures[0].Match != "2/3" {
		t.Errorf("tracks = %+v", tracks)
	}
	if n, _ := db.CanonCount(ctx, canon.KindMeasure); n != 0 {
		t.Errorf("analyze wrote %d measures", n)
	}
}

func TestDeleteSong(t *testing.T) {
	svc, db, lib := testService(t, Options{})
	ctx := context.Background()

	song, err := svc.Ingest(ctx, "a.yaml", testutil.TabFile("Gone"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteSong(ctx, song.ID); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}
	if _, err := svc.GetSong(ctx, song.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetSong err = %v", err)
	}
	if files, _ := lib.List(""); len(files) != 0 {
		t.Errorf("library still holds %v", files)
	}
	if n, _ := db.CanonCount(ctx, canon.KindMeasure); n != 2 {
		t.Errorf("canonical measures = %d, want 2 kept", n)
	}
	if err := svc.DeleteSong(ctx, song.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}

	// The same file may be ingested again once deleted.
	if _, err := svc.Ingest(ctx, "a.yaml", testutil.TabFile("Gone"), nil); err != nil {
		t.Errorf("re-ingest: %v", err)
	}
}

func TestMeasureMIDI(t *testing.T) {
	svc, _, _ := testService(t, Options{})
	ctx := context.Background()

	song, err := svc.Ingest(ctx, "a.yaml", testutil.TabFile("Midi"), nil)
	if err != nil {
		t.Fatal(err)
	}
	tr, _ := svc.GetTrack(ctx, song.Tracks[0].ID, 0)
	data, err := svc.MeasureMIDI(ctx, tr.Measures[0].MeasureID, 0)
	if err != nil {
		t.Fatalf("MeasureMIDI: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("MThd")) {
		t.Errorf("not a MIDI file: % x", data[:min(8, len(data))])
	}
	if _, err := svc.MeasureMIDI(ctx, "missing", 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing measure err = %v", err)
	}
}

func TestParseTracks(t *testing.T) {
	got, err := ParseTracks(" 0, 2 ,3")
	if err != nil || len(got) != 3 || got[1] != 2 {
		t.Errorf("ParseTracks = %v, %v", got, err)
	}
	if got, err := ParseTracks(""); err != nil || got != nil {
		t.Errorf("empty selection = %v, %v", got, err)
	}
	if _, err := ParseTracks("1,x"); !errors.Is(err, apperr.ErrInvalidTab) {
		t.Errorf("err = %v, want ErrInvalidTab", err)
	}
}
