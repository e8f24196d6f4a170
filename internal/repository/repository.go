// Package repository declares the persistence interfaces the service layer
// depends on. Implementations live in subpackages (see sqlite); tests swap
// in fakes.
package repository

import (
	"context"

	"github.com/thinkfirst/coderunner/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts for both identity paths: GitHub OAuth
// (Upsert keyed on the GitHub id) and local email/password (CreateUser +
// GetUserByEmail).
type UserRepository interface {
	// Upsert inserts a user on first GitHub login and refreshes the profile
	// fields on subsequent logins. It populates ID and the timestamps.
	Upsert(ctx context.Context, user *model.User) error
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// ExecutionRepository stores the audit trail of execution requests.
// Records are append-only: nothing updates or deletes them.
type ExecutionRepository interface {
	Create(ctx context.Context, record *model.ExecutionRecord) error
	// ListByUser returns the caller's own records, newest first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.ExecutionRecord, error)
}
