package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReportClose_ArchivesEntries(t *testing.T) {
	dir := t.TempDir()
	r, err := (&ReporterConfig{Destination: filepath.Join(dir, "report.zip")}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	input := filepath.Join(dir, "groups.xaml")
	if err := os.WriteFile(input, []byte("<VisualStateGroup/>"), 0644); err != nil {
		t.Fatal(err)
	}
	r.Store("input-2.xaml", input)
	r.Store("missing.xaml", filepath.Join(dir, "missing.xaml"))
	r.StoreData("input-10.vsrd", []byte{1, 2, 3})
	r.StoreData("input-10.vsrd", []byte{4})

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	arc, err := zip.OpenReader(r.Name())
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer arc.Close()

	var names []string
	for _, f := range arc.File {
		names = append(names, f.Name)
	}
	if len(names) != 4 || names[0] != "MANIFEST" || names[1] != "input-2.xaml" {
		t.Fatalf("archive = %v", names)
	}
	if !strings.HasPrefix(names[3], "input-10.vsrd-") {
		t.Errorf("second data entry = %q", names[3])
	}

	rc, err := arc.File[1].Open()
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "<VisualStateGroup/>" {
		t.Errorf("stored file = %q", data)
	}
}

func TestReportStore_OverwritePanics(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("a", "/tmp/one")
	defer func() {
		if recover() == nil {
			t.Error("Store() with another path did not panic")
		}
	}()
	r.Store("a", "/tmp/two")
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name on nil report = %q", r.Name())
	}
	r.StoreData("x", nil)
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
