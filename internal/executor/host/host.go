// Package host implements executor.Executor with processes spawned directly
// on the host machine.
//
// Each request gets a private scratch directory: the source is written
// there, the optional compile stage and the run stage execute with it as
// their working directory, and the directory is removed on every way out.
// There is deliberately no sandbox beyond the per-stage wall-clock bound —
// available toolchains, filesystem and network are the host's own. Keep that
// in mind before pointing this at untrusted traffic.
package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thinkfirst/coderunner/internal/executor"
)

// Executor compiles and runs submissions on the host, one workspace per
// request. Safe for concurrent use: requests share only the immutable
// registry and the scratch base directory, in which every request owns a
// distinct subdirectory.
type Executor struct {
	config     Config
	registry   *Registry
	workspaces *workspaceManager
	logger     *slog.Logger
}

var _ executor.Executor = (*Executor)(nil)

// New builds a host executor. The scratch base directory is created if
// absent; a languages file, when configured, replaces or extends the
// built-in pipeline table before anything runs.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	def := DefaultConfig()
	if cfg.BaseDir == "" {
		cfg.BaseDir = def.BaseDir
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = def.StageTimeout
	}

	registry := NewRegistry()
	if cfg.LanguagesFile != "" {
		var err error
		registry, err = NewRegistryFromFile(cfg.LanguagesFile)
		if err != nil {
			return nil, err
		}
	}

	workspaces, err := newWorkspaceManager(cfg.BaseDir)
	if err != nil {
		return nil, err
	}

	logger.Info("host executor ready",
		slog.String("baseDir", cfg.BaseDir),
		slog.Duration("stageTimeout", cfg.StageTimeout),
		slog.Int("languages", len(registry.Languages())),
	)

	return &Executor{
		config:     cfg,
		registry:   registry,
		workspaces: workspaces,
		logger:     logger,
	}, nil
}

// Languages lists the canonical language identifiers the engine accepts.
func (e *Executor) Languages() []string { return e.registry.Languages() }

// Aliases returns the alias → canonical identifier table.
func (e *Executor) Aliases() map[string]string { return e.registry.Aliases() }

// InFlight reports how many executions currently hold a workspace.
func (e *Executor) InFlight() int { return e.workspaces.InFlight() }

// StageTimeout reports the configured per-stage wall-clock bound. Callers
// holding a request open for a full execution need at least twice this.
func (e *Executor) StageTimeout() time.Duration { return e.config.StageTimeout }

// Execute drives one request through resolve → workspace → compile → run.
//
// The expected outcomes — compile errors, runtime errors, timeouts,
// unsupported languages — come back as data with a nil error. A non-nil
// error means the engine itself failed (allocation, spawn); the workspace
// is released on that path too.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	pipeline, ok := e.registry.Resolve(req.Language)
	if !ok {
		// No workspace allocated, no process spawned.
		return &executor.ExecutionResult{
			Stderr:   fmt.Sprintf("unsupported language: %s", req.Language),
			Outcome:  executor.OutcomeUnsupportedLanguage,
			ExitCode: executor.NoExitCode,
		}, nil
	}

	start := time.Now()

	ws, err := e.workspaces.Allocate()
	if err != nil {
		return nil, err
	}
	defer func() {
		// Runs on every path out of this function, faults included.
		if relErr := e.workspaces.Release(ws); relErr != nil {
			e.logger.Error("failed to release workspace",
				slog.String("workspace", ws.ID),
				slog.String("error", relErr.Error()),
			)
		}
	}()

	// Source text goes to disk verbatim. No transformation, no escaping:
	// argv vectors keep user content out of any shell.
	ws.SourcePath = filepath.Join(ws.Root, pipeline.SourceName)
	if err := os.WriteFile(ws.SourcePath, []byte(req.Code), 0o644); err != nil {
		return nil, fmt.Errorf("host: writing source: %w", err)
	}
	if req.Stdin != "" {
		ws.StdinPath = filepath.Join(ws.Root, stdinFileName)
		if err := os.WriteFile(ws.StdinPath, []byte(req.Stdin), 0o644); err != nil {
			return nil, fmt.Errorf("host: writing stdin file: %w", err)
		}
	}
	if pipeline.ProducesBinary {
		ws.BinaryPath = filepath.Join(ws.Root, binaryName)
	}

	// Compile stage, for languages that have one. Its deadline is separate
	// from the run stage's, and a timeout here never attempts the run.
	if len(pipeline.Compile) > 0 {
		res, err := runProcess(ctx, runSpec{
			argv:    expandArgv(pipeline.Compile, pipeline),
			dir:     ws.Root,
			timeout: e.config.StageTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("host: compile stage (%s): %w", pipeline.Language, err)
		}
		if res.timedOut {
			return &executor.ExecutionResult{
				Stdout:   res.stdout,
				Stderr:   res.stderr,
				Stage:    executor.StageCompile,
				Outcome:  executor.OutcomeTimeout,
				ExitCode: executor.NoExitCode,
				Language: pipeline.Language,
				Duration: time.Since(start),
			}, nil
		}
		if res.exitCode != 0 {
			// Compiler diagnostics are the user's primary signal; return
			// them untouched.
			return &executor.ExecutionResult{
				Stdout:   res.stdout,
				Stderr:   res.stderr,
				Stage:    executor.StageCompile,
				Outcome:  executor.OutcomeCompileError,
				ExitCode: res.exitCode,
				Language: pipeline.Language,
				Duration: time.Since(start),
			}, nil
		}
	}

	// Run stage. The program reads its stdin from the persisted file; with
	// no stdin in the request it sees an empty input stream.
	var stdin io.Reader
	if ws.StdinPath != "" {
		f, err := os.Open(ws.StdinPath)
		if err != nil {
			return nil, fmt.Errorf("host: opening stdin file: %w", err)
		}
		defer f.Close()
		stdin = f
	}

	res, err := runProcess(ctx, runSpec{
		argv:    expandArgv(pipeline.Run, pipeline),
		dir:     ws.Root,
		timeout: e.config.StageTimeout,
		stdin:   stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("host: run stage (%s): %w", pipeline.Language, err)
	}

	result := &executor.ExecutionResult{
		Stdout:   res.stdout,
		Stderr:   res.stderr,
		Stage:    executor.StageRun,
		Language: pipeline.Language,
		Duration: time.Since(start),
	}
	switch {
	case res.timedOut:
		result.Outcome = executor.OutcomeTimeout
		result.ExitCode = executor.NoExitCode
	case res.exitCode != 0:
		result.Outcome = executor.OutcomeRuntimeError
		result.ExitCode = res.exitCode
	default:
		result.Outcome = executor.OutcomeSuccess
	}
	return result, nil
}

// expandArgv resolves the registry placeholders. Expansions are
// workspace-relative (the process runs with the workspace as its working
// directory), which also keeps scratch paths out of compiler diagnostics.
func expandArgv(argv []string, p Pipeline) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		a = strings.ReplaceAll(a, "{source}", p.SourceName)
		a = strings.ReplaceAll(a, "{binary}", "./"+binaryName)
		a = strings.ReplaceAll(a, "{runname}", p.RunName())
		out[i] = a
	}
	return out
}
