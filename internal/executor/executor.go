// Package executor defines the contract between the code-execution engine
// and its callers. Implementations live in subpackages (see host); everything
// else in the application depends only on this package.
package executor

import (
	"context"
	"time"
)

// Outcome is the terminal classification of one execution attempt.
type Outcome string

const (
	// OutcomeSuccess: the program ran and exited 0.
	OutcomeSuccess Outcome = "success"
	// OutcomeCompileError: the toolchain rejected the source. Compiler
	// diagnostics are returned verbatim in Stderr.
	OutcomeCompileError Outcome = "compileError"
	// OutcomeRuntimeError: the program ran and exited nonzero. Whatever it
	// printed before failing is preserved in Stdout/Stderr.
	OutcomeRuntimeError Outcome = "runtimeError"
	// OutcomeTimeout: a stage exceeded its wall-clock deadline and the
	// process tree was killed.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeUnsupportedLanguage: the language identifier is not registered.
	// Nothing was allocated or spawned.
	OutcomeUnsupportedLanguage Outcome = "unsupportedLanguage"
)

// Stage identifies which pipeline step produced the terminal outcome.
// It is empty for OutcomeUnsupportedLanguage, where no stage ran.
type Stage string

const (
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
)

// NoExitCode is the ExitCode value for results where the process never
// exited on its own (timeout, unsupported language, spawn failure).
const NoExitCode = -1

// ExecutionRequest is one program to compile (when the language needs it)
// and run. It is immutable once handed to an Executor.
type ExecutionRequest struct {
	// Code is the source text, written to the workspace verbatim.
	Code string `json:"code"`
	// Language is a registry identifier or alias, matched case-insensitively.
	Language string `json:"language"`
	// Stdin, when non-empty, is fed to the running program's standard input.
	Stdin string `json:"stdin,omitempty"`
}

// ExecutionResult is the structured outcome of one execution attempt.
//
// Invariants: Outcome == OutcomeCompileError implies Stage == StageCompile;
// Outcome == OutcomeSuccess implies ExitCode == 0.
type ExecutionResult struct {
	Stdout   string
	Stderr   string
	Stage    Stage
	Outcome  Outcome
	ExitCode int
	// Language is the canonical registry identifier the request resolved
	// to, with aliases folded ("py" comes back as "python"). Empty when
	// the outcome is OutcomeUnsupportedLanguage.
	Language string
	// Duration is wall-clock time from workspace setup through the last
	// stage that ran. Zero for unsupported languages.
	Duration time.Duration
}

// Executor runs user-submitted source and classifies what happened.
//
// Every expected ending, compile errors and timeouts included, is returned
// as data with a nil error. A non-nil error means the engine itself failed
// (workspace allocation, process spawn) and carries no partial result.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
