package compile

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"vsmrt/config"
	"vsmrt/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs, transliterate bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Writer.FileNameTransliterate = transliterate
	cfg.Writer.OutputNameTemplate = template
	return &state.LocalEnv{Log: logger, Cfg: cfg, NoDirs: noDirs}
}

func testValues() Values {
	return Values{
		Context:   string(config.OutputNameTemplateFieldName),
		Name:      "Button",
		SourceDir: "themes/dark",
		Kind:      "VisualStateGroupCollection",
		Revision:  4,
		Groups:    []string{"CommonStates", "FocusStates"},
		States:    []string{"Normal", "Pressed", "Focused"},
	}
}

func TestBuildOutputPath(t *testing.T) {
	src := filepath.Join("themes", "dark", "Button.xaml")
	dst := filepath.FromSlash("/output")

	tests := []struct {
		name          string
		noDirs        bool
		transliterate bool
		template      string
		want          string
	}{
		{"default keeps dirs", false, false, "", filepath.Join(dst, "themes", "dark", "Button.vsrd")},
		{"default no dirs", true, false, "", filepath.Join(dst, "Button.vsrd")},
		{"template name", true, false, "{{ .Name }}", filepath.Join(dst, "Button.vsrd")},
		{"template with subdirs", true, false, "{{ .Kind | lower }}/{{ .Name }}-v{{ .Revision }}",
			filepath.Join(dst, "visualstategroupcollection", "Button-v4.vsrd")},
		{"template with groups", true, false, `{{ .Name }}_{{ join "+" .Groups }}`,
			filepath.Join(dst, "Button_CommonStates+FocusStates.vsrd")},
		{"template below source dir", false, false, "{{ .Name }}",
			filepath.Join(dst, "themes", "dark", "Button.vsrd")},
		{"broken template falls back", true, false, "{{ .Name ", filepath.Join(dst, "Button.vsrd")},
		{"unknown field falls back", true, false, "{{ .Title }}", filepath.Join(dst, "Button.vsrd")},
		{"parent dirs are dropped", true, false, "../../{{ .Name }}", filepath.Join(dst, "Button.vsrd")},
		{"transliterate", true, true, "Тема {{ .Name }}", filepath.Join(dst, "tema-button.vsrd")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.noDirs, tt.transliterate, tt.template)
			if got := buildOutputPath(testValues(), src, dst, env); got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDefaultFileName(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "")
	if got := buildDefaultFileName("a/.hidden.xaml", env); got != "hidden.vsrd" {
		t.Errorf("buildDefaultFileName() = %q", got)
	}
	env.Cfg.Writer.FileNameTransliterate = true
	if got := buildDefaultFileName("Кнопка.xaml", env); got != "knopka.vsrd" {
		t.Errorf("buildDefaultFileName() = %q", got)
	}
}

func TestSplitAndCleanPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{filepath.Join("a", "b", "c"), []string{"a", "b", "c"}},
		{"c", []string{"c"}},
		{filepath.Join("a", "b") + string(filepath.Separator), []string{"a", "b"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := splitAndCleanPath(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndCleanPath(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitAndCleanPath(%q) = %q, want %q", tt.in, got, tt.want)
				break
			}
		}
	}
}
