package model

import "time"

// ExecutionRecord is the audit-trail entry written after every execution
// request. It stores a truncated copy of the submitted source, never the
// full program, and the classification of what happened — enough to answer
// "who ran what, when, and how did it end" without becoming a code archive.
type ExecutionRecord struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Language    string `json:"language"` // canonical identifier, post-alias
	CodeSnippet string `json:"codeSnippet"`
	Outcome     string `json:"outcome"`
	Success     bool   `json:"success"`
	// ExitCode is -1 when the process never exited on its own
	// (timeout, unsupported language).
	ExitCode      int       `json:"exitCode"`
	ElapsedMillis int64     `json:"elapsedMillis"`
	CreatedAt     time.Time `json:"createdAt"`
}
