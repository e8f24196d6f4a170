// Package model defines the data structures shared across the application.
package model

import "time"

// User is a registered account. Identity comes from one of two places:
// GitHub OAuth (GitHubID set, no password) or local email/password signup
// (PasswordHash set, GitHubID zero). Either way the primary key is our own
// xid — third-party numbering never becomes a foreign key here.
type User struct {
	ID           string    `json:"id"`
	GitHubID     int64     `json:"githubId,omitempty"` // GitHub's numeric user id; 0 for local accounts
	Login        string    `json:"login"`
	Email        string    `json:"email"` // may be empty for GitHub users who hide it
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	PasswordHash string    `json:"-"` // bcrypt hash; empty for OAuth-only accounts
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
