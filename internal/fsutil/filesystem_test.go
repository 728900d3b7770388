package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_GlobSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "trial-1"), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, name := range []string{"trial-1/b.csv", "trial-1/a.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("RSSI,DISTANCE\n"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	fs := OSFileSystem{}
	matches, err := fs.Glob(filepath.Join(dir, "trial-*", "*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(matches), matches)
	}
	if filepath.Base(matches[0]) != "a.csv" {
		t.Errorf("expected sorted results, got %v", matches)
	}

	dirs, err := fs.Glob(filepath.Join(dir, "trial-*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(dirs) != 0 {
		t.Errorf("expected directories to be filtered, got %v", dirs)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("RSSI,DISTANCE\n-60,1.5\n")
	if err := mfs.WriteFile("/trial/a.csv", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/trial/a.csv")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/model.gob.gz")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("blob")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := mfs.Open("/model.gob.gz")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "blob" {
		t.Errorf("expected 'blob', got %q", data)
	}
}

func TestMemoryFileSystem_OpenNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Open("/nonexistent.csv"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/stat.csv", []byte("12345"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	info, err := mfs.Stat("/stat.csv")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "stat.csv" || info.Size() != 5 || info.IsDir() {
		t.Errorf("unexpected file info: name=%q size=%d dir=%v", info.Name(), info.Size(), info.IsDir())
	}

	if err := mfs.MkdirAll("/runs/2026", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	info, err = mfs.Stat("/runs")
	if err != nil {
		t.Fatalf("Stat dir failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory")
	}
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{
		"/data/indoor-1/b.csv",
		"/data/indoor-1/a.csv",
		"/data/indoor-2/c.csv",
		"/data/outdoor-1/d.csv",
		"/data/indoor-1/notes.txt",
	} {
		if err := mfs.WriteFile(name, nil, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	got, err := mfs.Glob("/data/indoor-*/*.csv")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{"/data/indoor-1/a.csv", "/data/indoor-1/b.csv", "/data/indoor-2/c.csv"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if _, err := mfs.Glob("/data/[-"); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestMemoryFileSystem_CreateTruncatesUntilClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/out/labels.csv", []byte("old"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w, err := mfs.Create("/out/labels.csv")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("new")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if data, _ := mfs.ReadFile("/out/labels.csv"); len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if data, _ := mfs.ReadFile("/out/labels.csv"); string(data) != "new" {
		t.Errorf("expected 'new', got %q", data)
	}

	if _, err := mfs.Stat("/missing.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
