// Package service contains the business logic layer: it validates
// requests, orchestrates the execution engine and repositories, and keeps
// HTTP concerns out of both.
//
// The dependency chain is wired in main: DB → repository → service →
// handler. Services depend on interfaces (executor.Executor, the
// repository interfaces), so tests swap in fakes with no HTTP or SQLite
// involved.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/thinkfirst/coderunner/internal/apperror"
	"github.com/thinkfirst/coderunner/internal/executor"
	"github.com/thinkfirst/coderunner/internal/model"
	"github.com/thinkfirst/coderunner/internal/repository"
)

const (
	// MaxCodeLength bounds submitted source at ~100KB.
	MaxCodeLength = 100000
	// AuditCodeLength is how much of the source the audit trail keeps.
	AuditCodeLength  = 500
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ExecutionService runs user code through the engine and keeps the audit
// trail. It owns the outcome→success translation the API exposes.
type ExecutionService struct {
	engine  executor.Executor
	records repository.ExecutionRepository
	stats   *Stats
	logger  *slog.Logger
}

// NewExecutionService creates an ExecutionService with all dependencies.
func NewExecutionService(
	engine executor.Executor,
	records repository.ExecutionRepository,
	stats *Stats,
	logger *slog.Logger,
) *ExecutionService {
	return &ExecutionService{
		engine:  engine,
		records: records,
		stats:   stats,
		logger:  logger,
	}
}

// Execute validates the request, runs it through the engine, and appends
// an audit record for the user.
//
// Expected outcomes (compile errors, timeouts, unsupported languages) are
// part of the returned result. A non-nil error means the engine itself
// faulted or the request failed validation.
func (s *ExecutionService) Execute(ctx context.Context, userID string, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("service/execution: user ID must not be empty")
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if len(req.Code) > MaxCodeLength {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d bytes or less", MaxCodeLength))
	}
	if strings.TrimSpace(req.Language) == "" {
		return nil, apperror.ValidationFailed("language", "language is required")
	}

	result, err := s.engine.Execute(ctx, req)
	if err != nil {
		s.logger.Error("execution engine fault",
			slog.String("userID", userID),
			slog.String("language", req.Language),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/execution: running %s: %w", req.Language, err)
	}

	s.stats.Record(result.Outcome)

	// Unsupported languages carry no canonical id; record what was asked for.
	recordedLanguage := result.Language
	if recordedLanguage == "" {
		recordedLanguage = strings.ToLower(strings.TrimSpace(req.Language))
	}

	record := &model.ExecutionRecord{
		UserID:        userID,
		Language:      recordedLanguage,
		CodeSnippet:   truncateToValidUTF8(req.Code, AuditCodeLength),
		Outcome:       string(result.Outcome),
		Success:       result.Outcome == executor.OutcomeSuccess,
		ExitCode:      result.ExitCode,
		ElapsedMillis: result.Duration.Milliseconds(),
	}
	if err := s.records.Create(ctx, record); err != nil {
		// The user already has their result; a lost history row is logged,
		// not turned into a failed request.
		s.logger.Error("failed to record execution",
			slog.String("userID", userID),
			slog.String("language", recordedLanguage),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("execution finished",
		slog.String("userID", userID),
		slog.String("language", recordedLanguage),
		slog.String("outcome", string(result.Outcome)),
		slog.Int64("elapsedMs", result.Duration.Milliseconds()),
	)

	return result, nil
}

// History returns a page of the user's past executions, newest first.
func (s *ExecutionService) History(ctx context.Context, userID string, limit, offset int) ([]model.ExecutionRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("service/execution: user ID must not be empty")
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.records.ListByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list executions",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/execution: listing history: %w", err)
	}

	return records, nil
}

// truncateToValidUTF8 cuts s to at most n bytes without splitting a
// multi-byte rune at the boundary.
func truncateToValidUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
