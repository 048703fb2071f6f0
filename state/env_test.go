package state

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"vsmrt/config"
	"vsmrt/predicate"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
}

func TestEnvFromContext_PanicsWithoutEnv(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	time.Sleep(10 * time.Millisecond)
	if uptime := env.Uptime(); uptime < 10*time.Millisecond || uptime > time.Second {
		t.Errorf("Uptime() = %v", uptime)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}
		for i := 0; i < 3; i++ {
			env.RedirectStdLog()
			if env.restoreStdLog == nil {
				t.Errorf("Iteration %d: restoreStdLog not set", i)
			}
			env.RestoreStdLog()
		}
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestLocalEnv_Defaults(t *testing.T) {
	env := &LocalEnv{}
	if env.TargetOS() != typeindex.OSVersionLatest {
		t.Errorf("TargetOS() = %d", env.TargetOS())
	}
	if p := env.Platform(); p.OSVersion != uint32(typeindex.OSVersionLatest) {
		t.Errorf("Platform().OSVersion = %d", p.OSVersion)
	}
	if env.Predicates() != env.Predicates() {
		t.Error("Predicates() not cached")
	}
}

func TestLocalEnv_FromConfig(t *testing.T) {
	cfg := &config.Config{Version: 1}
	cfg.Writer.TargetOS = uint32(typeindex.OSVersionRS2)
	cfg.Runtime.PredicateEngine = config.PredicateEngineCel
	cfg.Runtime.Platform = config.PlatformConfig{
		OSVersion: uint32(typeindex.OSVersionRS3),
		Contracts: map[string]int{"Windows.Foundation.UniversalApiContract": 5},
		Types:     []string{"Windows.UI.Xaml.Controls.NavigationView"},
	}
	env := &LocalEnv{Cfg: cfg}

	if env.TargetOS() != typeindex.OSVersionRS2 {
		t.Errorf("TargetOS() = %d", env.TargetOS())
	}
	p := env.Platform()
	if !p.HasContract("Windows.Foundation.UniversalApiContract", 5) || p.HasContract("Windows.Foundation.UniversalApiContract", 7) {
		t.Errorf("Platform() contracts = %v", p.Contracts)
	}
	if !p.HasType("Windows.UI.Xaml.Controls.NavigationView") {
		t.Error("Platform() lost types")
	}

	// Expression is routed to CEL
	ok, err := env.Predicates().Evaluate(p, stream.PredicateAndArgs{Predicate: stream.TypeRef{Name: predicate.Expression}, Args: "os >= 16299"})
	if err != nil || !ok {
		t.Errorf("Expression = %v, %v", ok, err)
	}
}
