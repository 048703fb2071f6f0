package compile

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.txt")
		if err := os.WriteFile(filePath, []byte("not a zip"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("valid zip file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test2.zip")
		zipFile, err := os.Create(filePath)
		if err != nil {
			t.Fatalf("Failed to create zip file: %v", err)
		}
		w := zip.NewWriter(zipFile)
		f, err := w.Create("states.xaml")
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		f.Write([]byte(commonXAML))
		w.Close()
		zipFile.Close()

		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true")
		}
	})

	t.Run("nonexistent", func(t *testing.T) {
		if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
			t.Error("Expected error for non-existent file, got nil")
		}
	})
}

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"UTF-8 BOM", []byte{0xEF, 0xBB, 0xBF, 0x00}, encUTF8},
		{"UTF-16 Big Endian BOM", []byte{0xFE, 0xFF, 0x00, 0x00}, encUTF16BigEndian},
		{"UTF-16 Little Endian BOM", []byte{0xFF, 0xFE, 0x01, 0x00}, encUTF16LittleEndian},
		{"UTF-32 Big Endian BOM", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"UTF-32 Little Endian BOM", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"short UTF-16 BOM", []byte{0xFF, 0xFE}, encUTF16LittleEndian},
		{"No BOM", []byte{0x00, 0x01, 0x02, 0x03}, encUnknown},
		{"empty", nil, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsMarkupFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantOK   bool
		wantEnc  srcEncoding
	}{
		{"xaml", "states.xaml", []byte(commonXAML), true, encUnknown},
		{"xml with declaration", "states.xml", []byte(`<?xml version="1.0"?>` + commonXAML), true, encUnknown},
		{"leading whitespace", "ws.xaml", []byte("\n\t " + commonXAML), true, encUnknown},
		{"UTF-8 BOM", "bom.xaml", append([]byte{0xEF, 0xBB, 0xBF}, commonXAML...), true, encUTF8},
		{"UTF-16", "wide.xaml", encodeUTF16LE(commonXAML), true, encUTF16LittleEndian},
		{"uppercase extension", "STATES.XAML", []byte(commonXAML), true, encUnknown},
		{"wrong extension", "states.txt", []byte(commonXAML), false, encUnknown},
		{"not markup", "bad.xaml", []byte("just text"), false, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			if err := os.WriteFile(filePath, tt.content, 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}
			ok, enc, err := isMarkupFile(filePath)
			if err != nil {
				t.Fatalf("isMarkupFile() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("isMarkupFile() = %v, want %v", ok, tt.wantOK)
			}
			if enc != tt.wantEnc {
				t.Errorf("isMarkupFile() encoding = %v, want %v", enc, tt.wantEnc)
			}
		})
	}
}
