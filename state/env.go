// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"vsmrt/config"
	"vsmrt/predicate"
	"vsmrt/typeindex"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by compile subcommand
	NoDirs    bool
	Overwrite bool
	CodePage  encoding.Encoding

	predicates    *predicate.Registry
	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Predicates returns the registry conditional markup is evaluated with,
// the Expression predicate goes to the configured engine.
func (e *LocalEnv) Predicates() *predicate.Registry {
	if e.predicates == nil {
		var opts []predicate.Option
		if e.Cfg != nil {
			opts = append(opts, predicate.WithExpressionEngine(e.Cfg.Runtime.PredicateEngine.Predicate()))
		}
		e.predicates = predicate.NewRegistry(opts...)
	}
	return e.predicates
}

// Platform describes the capabilities conditional markup is evaluated
// against. An OS version of 0 stands for the newest known release.
func (e *LocalEnv) Platform() *predicate.Platform {
	if e.Cfg == nil {
		return predicate.NewPlatform(uint32(typeindex.OSVersionLatest), nil, nil, nil)
	}
	pc := e.Cfg.Runtime.Platform
	os := pc.OSVersion
	if os == 0 {
		os = uint32(typeindex.OSVersionLatest)
	}
	return predicate.NewPlatform(os, pc.Contracts, pc.Types, pc.Properties)
}

// TargetOS is the release the writer produces runtime data for.
func (e *LocalEnv) TargetOS() typeindex.OSVersion {
	if e.Cfg == nil || e.Cfg.Writer.TargetOS == 0 {
		return typeindex.OSVersionLatest
	}
	return typeindex.OSVersion(e.Cfg.Writer.TargetOS)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
