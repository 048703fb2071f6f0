package compile

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"vsmrt/blob"
	"vsmrt/config"
	"vsmrt/runtimedata"
	"vsmrt/state"
	"vsmrt/typeindex"
)

const commonXAML = `<VisualStateManager.VisualStateGroups xmlns="http://schemas.microsoft.com/winfx/2006/xaml/presentation"
    xmlns:x="http://schemas.microsoft.com/winfx/2006/xaml">
  <VisualStateGroup x:Name="CommonStates">
    <VisualStateGroup.Transitions>
      <VisualTransition From="Normal" To="Pressed" GeneratedDuration="0:0:0.2"/>
    </VisualStateGroup.Transitions>
    <VisualState x:Name="Normal"/>
    <VisualState x:Name="Pressed">
      <VisualState.Setters>
        <Setter Target="Root.Background" Value="Black"/>
      </VisualState.Setters>
    </VisualState>
  </VisualStateGroup>
</VisualStateManager.VisualStateGroups>`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func encodeUTF16LE(s string) []byte {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())
	w.Write([]byte(s))
	w.Close()
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func loadOutput(t *testing.T, path string) (*blob.Blob, *runtimedata.VisualStateGroupCollectionRuntimeData) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	b, err := blob.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	rd, err := runtimedata.FromBlob(b)
	if err != nil {
		t.Fatalf("FromBlob() error = %v", err)
	}
	vsgc, ok := rd.(*runtimedata.VisualStateGroupCollectionRuntimeData)
	if !ok {
		t.Fatalf("runtime data is %s", rd.Kind())
	}
	return b, vsgc
}

func TestProcess_SingleFile(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "states.xaml")
	writeFile(t, src, []byte(commonXAML))
	dst := t.TempDir()

	if err := process(ctx, src, dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	out := filepath.Join(dst, "states.vsrd")
	b, rd := loadOutput(t, out)
	if b.TypeIndex != typeindex.Latest(typeindex.KindVisualStateGroupCollection) {
		t.Errorf("TypeIndex = %s", b.TypeIndex)
	}
	if len(rd.States) != 2 || rd.States[1].Name != "Pressed" {
		t.Errorf("States = %+v", rd.States)
	}

	t.Run("existing output", func(t *testing.T) {
		if err := process(ctx, src, dst, env.Log); err == nil {
			t.Error("expected error for existing output")
		}
		env.Overwrite = true
		defer func() { env.Overwrite = false }()
		if err := process(ctx, src, dst, env.Log); err != nil {
			t.Errorf("process() with overwrite error = %v", err)
		}
	})
}

func TestProcess_TargetOS(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Writer.TargetOS = uint32(typeindex.OSVersionRS1)
	src := filepath.Join(t.TempDir(), "states.xaml")
	writeFile(t, src, []byte(commonXAML))
	dst := t.TempDir()

	if err := process(ctx, src, dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	b, _ := loadOutput(t, filepath.Join(dst, "states.vsrd"))
	if b.TypeIndex != typeindex.VisualStateGroupCollectionV2 {
		t.Errorf("TypeIndex = %s, want %s", b.TypeIndex, typeindex.VisualStateGroupCollectionV2)
	}
}

func TestRun_TargetOSFlag(t *testing.T) {
	ctx, env := setupTestEnv(t)
	core, logs := observer.New(zap.InfoLevel)
	env.Log = zap.New(core)
	src := filepath.Join(t.TempDir(), "states.xaml")
	writeFile(t, src, []byte(commonXAML))
	dst := t.TempDir()

	cmd := &cli.Command{
		Name:   "compile",
		Action: Run,
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "target-os"},
			&cli.BoolFlag{Name: "optimize"},
			&cli.BoolFlag{Name: "nodirs"},
			&cli.BoolFlag{Name: "overwrite"},
			&cli.StringFlag{Name: "force-zip-cp"},
		},
	}
	if err := cmd.Run(ctx, []string{"compile", "--target-os", "14393", src, dst}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	started := logs.FilterMessage("Processing starting").All()
	if len(started) != 1 {
		t.Fatalf("Processing starting logged %d times", len(started))
	}
	if got := started[0].ContextMap()["target_os"]; got != "RS1(14393)" {
		t.Errorf("target_os = %v, want RS1(14393)", got)
	}
	b, _ := loadOutput(t, filepath.Join(dst, "states.vsrd"))
	if b.TypeIndex != typeindex.VisualStateGroupCollectionV2 {
		t.Errorf("TypeIndex = %s, want %s", b.TypeIndex, typeindex.VisualStateGroupCollectionV2)
	}
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.xaml"), []byte(commonXAML))
	writeFile(t, filepath.Join(srcDir, "nested", "b.xaml"), encodeUTF16LE(commonXAML))
	writeFile(t, filepath.Join(srcDir, "nested", "broken.xaml"), []byte("<Grid>"))
	writeFile(t, filepath.Join(srcDir, "readme.txt"), []byte("skip me"))

	t.Run("keep dirs", func(t *testing.T) {
		dst := t.TempDir()
		if err := process(ctx, srcDir, dst, env.Log); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		for _, name := range []string{"a.vsrd", filepath.Join("nested", "b.vsrd")} {
			if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
				t.Errorf("missing output %s: %v", name, err)
			}
		}
		if _, err := os.Stat(filepath.Join(dst, "nested", "broken.vsrd")); err == nil {
			t.Error("broken markup produced output")
		}
	})

	t.Run("no dirs", func(t *testing.T) {
		env.NoDirs = true
		defer func() { env.NoDirs = false }()
		dst := t.TempDir()
		if err := process(ctx, srcDir, dst, env.Log); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		for _, name := range []string{"a.vsrd", "b.vsrd"} {
			if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
				t.Errorf("missing output %s: %v", name, err)
			}
		}
	})
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := setupTestEnv(t)
	zipPath := filepath.Join(t.TempDir(), "themes.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(zf)
	for _, name := range []string{"light/Button.xaml", "dark/Button.xaml", "notes.txt"} {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		fw.Write([]byte(commonXAML))
	}
	w.Close()
	zf.Close()

	t.Run("whole archive", func(t *testing.T) {
		dst := t.TempDir()
		if err := process(ctx, zipPath, dst, env.Log); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		for _, name := range []string{filepath.Join("light", "Button.vsrd"), filepath.Join("dark", "Button.vsrd")} {
			if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
				t.Errorf("missing output %s: %v", name, err)
			}
		}
	})

	t.Run("path inside archive", func(t *testing.T) {
		dst := t.TempDir()
		if err := process(ctx, filepath.Join(zipPath, "dark"), dst, env.Log); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dst, "dark", "Button.vsrd")); err != nil {
			t.Errorf("missing output: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dst, "light")); err == nil {
			t.Error("file outside of requested prefix compiled")
		}
	})
}

func TestProcess_Errors(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()

	t.Run("missing source", func(t *testing.T) {
		if err := process(ctx, filepath.Join(dir, "none.xaml"), dir, env.Log); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("not markup", func(t *testing.T) {
		src := filepath.Join(dir, "notes.txt")
		writeFile(t, src, []byte("text"))
		if err := process(ctx, src, dir, env.Log); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unsupported root", func(t *testing.T) {
		src := filepath.Join(dir, "grid.xaml")
		writeFile(t, src, []byte(`<Grid xmlns="http://schemas.microsoft.com/winfx/2006/xaml/presentation"/>`))
		if err := process(ctx, src, dir, env.Log); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := process(cctx, dir, dir, env.Log); err == nil {
			t.Error("expected error")
		}
	})
}
