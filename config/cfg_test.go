package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
	yaml "gopkg.in/yaml.v3"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if !cfg.Runtime.AnimationsEnabled {
		t.Error("animations disabled by default")
	}
	if cfg.Runtime.Fallback != FallbackPolicyOnLoad {
		t.Errorf("Fallback = %s, want onLoad", cfg.Runtime.Fallback)
	}
	if cfg.Runtime.PredicateEngine != PredicateEngineExpr {
		t.Errorf("PredicateEngine = %s, want expr", cfg.Runtime.PredicateEngine)
	}
	if cfg.Runtime.Platform.Contracts["Windows.Foundation.UniversalApiContract"] != 7 {
		t.Errorf("Contracts = %v", cfg.Runtime.Platform.Contracts)
	}
	if cfg.Writer.TargetOS != 0 || cfg.Writer.Optimize {
		t.Errorf("Writer = %+v", cfg.Writer)
	}
	if cfg.Writer.OutputNameTemplate != "{{ .Name }}" {
		t.Errorf("OutputNameTemplate = %q, template expanded", cfg.Writer.OutputNameTemplate)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" || cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
runtime:
  animations_enabled: false
  fallback: onDemand
  predicate_engine: cel
  platform:
    os_version: 16299
    types: ["Windows.UI.Xaml.Controls.NavigationView"]
    properties: ["Windows.UI.Xaml.UIElement.KeyboardAccelerators"]
writer:
  target_os: 15063
  optimize: true
logging:
  console:
    level: debug
  file:
    level: debug
    destination: ` + filepath.Join(tmpDir, "test.log") + `
    mode: append
reporting:
  destination: ` + filepath.Join(tmpDir, "report.zip") + `
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Runtime.AnimationsEnabled {
		t.Error("Expected animations to be disabled")
	}
	if cfg.Runtime.Fallback != FallbackPolicyOnDemand {
		t.Errorf("Fallback = %s, want onDemand", cfg.Runtime.Fallback)
	}
	if cfg.Runtime.PredicateEngine.Predicate() != "CEL" {
		t.Errorf("PredicateEngine = %s", cfg.Runtime.PredicateEngine)
	}
	if cfg.Runtime.Platform.OSVersion != 16299 || len(cfg.Runtime.Platform.Types) != 1 {
		t.Errorf("Platform = %+v", cfg.Runtime.Platform)
	}
	// maps from the file are merged into the defaults
	if cfg.Runtime.Platform.Contracts["Windows.Foundation.UniversalApiContract"] != 7 {
		t.Errorf("Contracts = %v", cfg.Runtime.Platform.Contracts)
	}
	if cfg.Writer.TargetOS != 15063 || !cfg.Writer.Optimize {
		t.Errorf("Writer = %+v", cfg.Writer)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("Mode = %q", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\nruntime:\n  fallback: onLoad\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"unknown fallback", "version: 1\nruntime:\n  fallback: never\n"},
		{"unknown engine", "version: 1\nruntime:\n  predicate_engine: lua\n"},
		{"bad version", "version: 2\n"},
		{"bad property", "version: 1\nruntime:\n  platform:\n    properties: [\"NoDot\"]\n"},
		{"bad log level", "version: 1\nlogging:\n  console:\n    level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("LoadConfiguration() succeeded")
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}
	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if _, err := unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Runtime: RuntimeConfig{Fallback: FallbackPolicyOnDemand, PredicateEngine: PredicateEngineCel},
		Writer:  WriterConfig{TargetOS: 17763},
	}
	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	for _, want := range []string{"fallback: onDemand", "predicate_engine: cel", "target_os: 17763"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Dump() missing %q:\n%s", want, data)
		}
	}

	var back Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if back.Runtime.Fallback != FallbackPolicyOnDemand || back.Runtime.PredicateEngine != PredicateEngineCel {
		t.Errorf("round trip = %+v", back.Runtime)
	}
}

func TestEnums(t *testing.T) {
	if _, err := ParseFallbackPolicy("sometimes"); !errors.Is(err, ErrInvalidFallbackPolicy) {
		t.Errorf("ParseFallbackPolicy error = %v", err)
	}
	if FallbackPolicy(7).IsValid() || FallbackPolicy(7).String() != "FallbackPolicy(7)" {
		t.Error("FallbackPolicy(7) treated as valid")
	}
	if p, err := ParsePredicateEngine("cel"); err != nil || p != PredicateEngineCel {
		t.Errorf("ParsePredicateEngine = %v, %v", p, err)
	}
	defer func() {
		if recover() == nil {
			t.Error("Predicate() should panic for invalid engine")
		}
	}()
	PredicateEngine(9).Predicate()
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	_, err := unmarshalConfig([]byte("version: 99\n"), &Config{}, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error, got bare error: %v", err)
	}
}
