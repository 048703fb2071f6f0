package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

type zipEntry struct {
	name    string
	content string
	nonUTF8 bool
	dir     bool
}

func createZip(t *testing.T, entries []zipEntry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.name, NonUTF8: e.nonUTF8, Method: zip.Deflate}
		if e.dir {
			fh.SetMode(os.ModeDir | 0755)
		}
		fw, err := w.CreateHeader(fh)
		if err != nil {
			t.Fatalf("Failed to create %s in zip: %v", e.name, err)
		}
		if !e.dir {
			if _, err := fw.Write([]byte(e.content)); err != nil {
				t.Fatalf("Failed to write content for %s: %v", e.name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return zipPath
}

func collect(t *testing.T, zipPath, prefix string) []string {
	t.Helper()
	var visited []string
	err := Walk(zipPath, prefix, nil, func(e Entry) error {
		if e.Archive != zipPath {
			t.Errorf("archive = %s, want %s", e.Archive, zipPath)
		}
		visited = append(visited, e.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	return visited
}

func TestWalk(t *testing.T) {
	zipPath := createZip(t, []zipEntry{
		{name: "themes/", dir: true},
		{name: "themes/light/Button.xaml", content: "<Grid/>"},
		{name: "themes/dark/Button.xaml", content: "<Grid/>"},
		{name: "pages/Main.xaml", content: "<Page/>"},
		{name: "readme.txt", content: "readme"},
	})

	tests := []struct {
		prefix string
		want   int
	}{
		{"themes/", 2},
		{"themes/dark/", 1},
		{"pages/", 1},
		{"Themes/", 0},
		{"missing/", 0},
		{"", 4},
	}
	for _, tt := range tests {
		t.Run("prefix "+tt.prefix, func(t *testing.T) {
			if got := collect(t, zipPath, tt.prefix); len(got) != tt.want {
				t.Errorf("visited %v, want %d files", got, tt.want)
			}
		})
	}
}

func TestWalk_StopsOnError(t *testing.T) {
	zipPath := createZip(t, []zipEntry{
		{name: "a.xaml", content: "<A/>"},
		{name: "b.xaml", content: "<B/>"},
		{name: "c.xaml", content: "<C/>"},
	})

	stopErr := errors.New("stop walking")
	var visited int
	err := Walk(zipPath, "", nil, func(Entry) error {
		visited++
		if visited == 2 {
			return stopErr
		}
		return nil
	})
	if !errors.Is(err, stopErr) {
		t.Errorf("Walk() error = %v, want %v", err, stopErr)
	}
	if visited != 2 {
		t.Errorf("visited %d files, want 2", visited)
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		if err := Walk("/nonexistent/file.zip", "", nil, func(Entry) error { return nil }); err == nil {
			t.Error("Expected error for nonexistent file")
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		invalidZip := filepath.Join(t.TempDir(), "invalid.zip")
		if err := os.WriteFile(invalidZip, []byte("not a zip file"), 0644); err != nil {
			t.Fatalf("Failed to create invalid zip: %v", err)
		}
		if err := Walk(invalidZip, "", nil, func(Entry) error { return nil }); err == nil {
			t.Error("Expected error for invalid zip file")
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		zipPath := createZip(t, []zipEntry{{name: "../evil.xaml", content: "<A/>"}})
		if err := Walk(zipPath, "", nil, func(Entry) error { return nil }); err == nil {
			t.Error("Expected error for unsafe entry")
		}
	})
}

func TestWalk_FileContent(t *testing.T) {
	content := `<VisualStateGroup x:Name="CommonStates"/>`
	zipPath := createZip(t, []zipEntry{{name: "states.xaml", content: content}})

	err := Walk(zipPath, "", nil, func(e Entry) error {
		rc, err := e.File.Open()
		if err != nil {
			return err
		}
		defer rc.Close()

		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(rc); err != nil {
			return err
		}
		if buf.String() != content {
			t.Errorf("content = %s, want %s", buf.String(), content)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}
}

func TestWalk_DecodesNames(t *testing.T) {
	raw, err := charmap.CodePage866.NewEncoder().String("Тема.xaml")
	if err != nil {
		t.Fatalf("encode name: %v", err)
	}
	zipPath := createZip(t, []zipEntry{{name: raw, content: "<A/>", nonUTF8: true}})

	t.Run("without decoder", func(t *testing.T) {
		got := collect(t, zipPath, "")
		if len(got) != 1 || got[0] != raw {
			t.Errorf("visited %q, want raw name", got)
		}
	})

	t.Run("with decoder", func(t *testing.T) {
		var got []string
		err := Walk(zipPath, "", charmap.CodePage866.NewDecoder(), func(e Entry) error {
			if e.NameErr != nil {
				t.Errorf("NameErr = %v", e.NameErr)
			}
			got = append(got, e.Name)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		if len(got) != 1 || got[0] != "Тема.xaml" {
			t.Errorf("visited %q, want decoded name", got)
		}
	})
}
