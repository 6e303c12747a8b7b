package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backmassage/vidsqueeze/internal/config"
)

// --- Discover tests ---

func TestDiscover_FiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "movie.mkv")
	touch(t, dir, "show.mp4")
	touch(t, dir, "music.mp3")
	touch(t, dir, "readme.txt")
	touch(t, dir, "anime.avi")
	touch(t, dir, "special.m4v")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"anime.avi", "movie.mkv", "show.mp4", "special.m4v"}
	got := basenames(files)
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDiscover_AllMediaExtensions(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range MediaExtensions {
		touch(t, dir, "file"+ext)
	}
	touch(t, dir, "file.jpg")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != len(MediaExtensions) {
		t.Errorf("got %d files, want %d", len(files), len(MediaExtensions))
	}
}

func TestDiscover_SkipsHidden(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "movie.mkv")
	touch(t, dir, "._movie.mkv")
	os.MkdirAll(filepath.Join(dir, ".cache"), 0o755)
	touch(t, filepath.Join(dir, ".cache"), "thumb.mp4")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := basenames(files); !sliceEqual(got, []string{"movie.mkv"}) {
		t.Errorf("got %v, want [movie.mkv]", got)
	}
}

func TestDiscover_PrunesExtras(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "main.mkv")
	os.MkdirAll(filepath.Join(dir, "Extras"), 0o755)
	touch(t, filepath.Join(dir, "Extras"), "bonus.mkv")
	os.MkdirAll(filepath.Join(dir, "extras"), 0o755)
	touch(t, filepath.Join(dir, "extras"), "deleted_scenes.mp4")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("got %d files, want 1 (extras should be pruned)", len(files))
	}
}

func TestDiscover_RecursiveAndSorted(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "Show", "Season 01"), 0o755)
	os.MkdirAll(filepath.Join(dir, "Show", "Season 02"), 0o755)
	touch(t, filepath.Join(dir, "Show", "Season 02"), "ep01.mkv")
	touch(t, filepath.Join(dir, "Show", "Season 01"), "ep02.mkv")
	touch(t, filepath.Join(dir, "Show", "Season 01"), "ep01.mkv")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	// Should be sorted lexicographically.
	for i := 1; i < len(files); i++ {
		if files[i] < files[i-1] {
			t.Errorf("not sorted: %q before %q", files[i-1], files[i])
		}
	}
}

func TestDiscover_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestDiscover_CaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "MOVIE.MKV")
	touch(t, dir, "Show.Mp4")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("got %d files, want 2 (case-insensitive ext matching)", len(files))
	}
}

// --- RunStats tests ---

func TestRunStats_SpaceSaved(t *testing.T) {
	s := RunStats{TotalInputBytes: 1000, TotalOutputBytes: 600}
	if got := s.SpaceSaved(); got != 400 {
		t.Errorf("SpaceSaved: got %d, want 400", got)
	}

	s2 := RunStats{TotalInputBytes: 100, TotalOutputBytes: 150}
	if got := s2.SpaceSaved(); got != -50 {
		t.Errorf("SpaceSaved (negative): got %d, want -50", got)
	}
}

func TestRunStats_Record(t *testing.T) {
	var s RunStats
	s.record(jobOutcome{status: statusEncoded, inputSize: 1000, outputSize: 300})
	s.record(jobOutcome{status: statusSkipped})
	s.record(jobOutcome{status: statusFailed})

	if s.Current != 3 || s.Encoded != 1 || s.Skipped != 1 || s.Failed != 1 {
		t.Errorf("counters: %+v", s)
	}
	if s.SpaceSaved() != 700 {
		t.Errorf("SpaceSaved: got %d, want 700", s.SpaceSaved())
	}
}

// --- Output path mapping tests ---

func TestOutputPathFor(t *testing.T) {
	in := filepath.Join("/media", "in")
	out := filepath.Join("/media", "out")
	cases := []struct {
		path      string
		container config.Container
		want      string
	}{
		{filepath.Join(in, "movie.mp4"), config.ContainerMKV, filepath.Join(out, "movie.mkv")},
		{filepath.Join(in, "Show", "Season 01", "ep01.avi"), config.ContainerMP4, filepath.Join(out, "Show", "Season 01", "ep01.mp4")},
		{filepath.Join(in, "clip.final.mov"), config.ContainerMKV, filepath.Join(out, "clip.final.mkv")},
		{filepath.Join(in, "same.mkv"), config.ContainerMKV, filepath.Join(out, "same.mkv")},
	}
	for _, tc := range cases {
		got, err := OutputPathFor(in, out, tc.path, tc.container)
		if err != nil {
			t.Errorf("OutputPathFor(%q): %v", tc.path, err)
			continue
		}
		if got != tc.want {
			t.Errorf("OutputPathFor(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}

	if _, err := OutputPathFor(in, out, filepath.Join("/elsewhere", "a.mkv"), config.ContainerMKV); err == nil {
		t.Error("expected error for a path outside the input directory")
	}
}

// --- Helpers ---

func touch(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
