package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/thinkfirst/coderunner/internal/apperror"
	"github.com/thinkfirst/coderunner/internal/model"
)

// newTestDB opens a fresh in-memory database for one test. Each test gets
// its own schema; t.Cleanup closes it when the test (and subtests) finish.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// upsertGitHubUser seeds a GitHub-backed user and fails the test on error.
func upsertGitHubUser(t *testing.T, db *DB, githubID int64, login string) *model.User {
	t.Helper()
	user := &model.User{
		GitHubID:  githubID,
		Login:     login,
		Email:     login + "@example.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/123",
	}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to upsert test user: %v", err)
	}
	return user
}

// createLocalUser seeds an email/password user and fails the test on error.
func createLocalUser(t *testing.T, db *DB, email, hash string) *model.User {
	t.Helper()
	user := &model.User{
		Login:        email,
		Email:        email,
		PasswordHash: hash,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// UPSERT TESTS (GitHub login path)
// =========================================================================

func TestUserUpsert_NewUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		GitHubID:  55555,
		Login:     "new_upsert_user",
		Email:     "new@example.com",
		AvatarURL: "https://example.com/new.png",
	}

	err := db.Upsert(context.Background(), user)
	if err != nil {
		t.Fatalf("Upsert() (new) error = %v", err)
	}

	if user.ID == "" {
		t.Error("Upsert() did not set user.ID for new user")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Upsert() did not set user.CreatedAt for new user")
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after Upsert: %v", err)
	}
	if found.Login != "new_upsert_user" {
		t.Errorf("Login = %q, want %q", found.Login, "new_upsert_user")
	}
	if found.GitHubID != 55555 {
		t.Errorf("GitHubID = %d, want 55555", found.GitHubID)
	}
}

func TestUserUpsert_ExistingUser_UpdatesProfile(t *testing.T) {
	db := newTestDB(t)

	// First login inserts the user
	first := &model.User{
		GitHubID:  66666,
		Login:     "original_login",
		Email:     "old@example.com",
		AvatarURL: "https://example.com/old.png",
	}
	if err := db.Upsert(context.Background(), first); err != nil {
		t.Fatalf("Upsert() first login: %v", err)
	}
	originalID := first.ID

	// Second login — same GitHub account, refreshed profile
	second := &model.User{
		GitHubID:  66666,
		Login:     "updated_login",
		Email:     "new@example.com",
		AvatarURL: "https://example.com/new.png",
	}
	if err := db.Upsert(context.Background(), second); err != nil {
		t.Fatalf("Upsert() second login: %v", err)
	}

	// The internal ID must not change — same user, same ID
	if second.ID != originalID {
		t.Errorf("Upsert() changed user ID: got %q, want %q", second.ID, originalID)
	}

	found, err := db.GetUserByID(context.Background(), originalID)
	if err != nil {
		t.Fatalf("GetUserByID() after second Upsert: %v", err)
	}
	if found.Login != "updated_login" {
		t.Errorf("Login after upsert = %q, want %q", found.Login, "updated_login")
	}
	if found.Email != "new@example.com" {
		t.Errorf("Email after upsert = %q, want %q", found.Email, "new@example.com")
	}
}

func TestUserUpsert_DoesNotChangeCreatedAt(t *testing.T) {
	db := newTestDB(t)

	usr := &model.User{GitHubID: 77777, Login: "timecheck"}
	if err := db.Upsert(context.Background(), usr); err != nil {
		t.Fatalf("Upsert() first: %v", err)
	}

	before, err := db.GetUserByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after first upsert: %v", err)
	}

	usr2 := &model.User{GitHubID: 77777, Login: "timecheck_updated"}
	if err := db.Upsert(context.Background(), usr2); err != nil {
		t.Fatalf("Upsert() second: %v", err)
	}

	after, err := db.GetUserByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after second upsert: %v", err)
	}

	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("Upsert() changed CreatedAt: got %v, want %v", after.CreatedAt, before.CreatedAt)
	}
}

// =========================================================================
// CREATE TESTS (local email/password path)
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Login:        "ada@example.com",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
	}

	err := db.CreateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}

	found, err := db.GetUserByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("ID = %q, want %q", found.ID, user.ID)
	}
	if found.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, user.PasswordHash)
	}
	if found.GitHubID != 0 {
		t.Errorf("GitHubID = %d, want 0 for a local account", found.GitHubID)
	}
}

// Local accounts all carry github_id 0; the unique index must not treat
// that as a collision.
func TestUserCreate_MultipleLocalAccounts(t *testing.T) {
	db := newTestDB(t)

	createLocalUser(t, db, "one@example.com", "hash1")
	createLocalUser(t, db, "two@example.com", "hash2")

	found, err := db.GetUserByEmail(context.Background(), "two@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.Email != "two@example.com" {
		t.Errorf("Email = %q, want %q", found.Email, "two@example.com")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	createLocalUser(t, db, "taken@example.com", "hash1")

	duplicate := &model.User{
		Login:        "taken@example.com",
		Email:        "taken@example.com",
		PasswordHash: "hash2",
	}
	err := db.CreateUser(context.Background(), duplicate)
	if err == nil {
		t.Fatal("CreateUser() should have returned an error for a duplicate email")
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")

	if err == nil {
		t.Fatal("GetUserByID() should have returned an error for nonexistent ID")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "ghost@example.com")

	if err == nil {
		t.Fatal("GetUserByEmail() should have returned an error for unknown email")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

// Both identity kinds live in one table; seeding one of each must not
// trip either partial unique index.
func TestUserIdentitiesCoexist(t *testing.T) {
	db := newTestDB(t)

	gh := upsertGitHubUser(t, db, 424242, "octocat")
	local := createLocalUser(t, db, "local@example.com", "hash")

	if gh.ID == local.ID {
		t.Fatal("GitHub and local users share an ID")
	}

	foundGH, err := db.GetUserByID(context.Background(), gh.ID)
	if err != nil {
		t.Fatalf("GetUserByID(github user): %v", err)
	}
	if foundGH.PasswordHash != "" {
		t.Errorf("GitHub user PasswordHash = %q, want empty", foundGH.PasswordHash)
	}

	foundLocal, err := db.GetUserByID(context.Background(), local.ID)
	if err != nil {
		t.Fatalf("GetUserByID(local user): %v", err)
	}
	if foundLocal.GitHubID != 0 {
		t.Errorf("local user GitHubID = %d, want 0", foundLocal.GitHubID)
	}
}
