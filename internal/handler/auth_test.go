package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkfirst/coderunner/internal/apperror"
	"github.com/thinkfirst/coderunner/internal/auth"
	"github.com/thinkfirst/coderunner/internal/handler"
	"github.com/thinkfirst/coderunner/internal/model"
	"github.com/thinkfirst/coderunner/internal/service"
)

// fakeUserRepo is an in-memory UserRepository with the same NotFound
// semantics as the SQLite implementation.
type fakeUserRepo struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) store(user *model.User) {
	f.nextID++
	user.ID = fmt.Sprintf("user-fake-%d", f.nextID)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	f.byID[user.ID] = &cp
	if user.Email != "" {
		f.byEmail[user.Email] = &cp
	}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	f.store(user)
	return nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	f.store(user)
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	cp := *u
	return &cp, nil
}

func newAuthHandler(t *testing.T) (*handler.AuthHandler, *fakeUserRepo) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := newFakeUserRepo()

	tokens, err := auth.NewTokenService("handler-test-secret-32-chars!!!!")
	require.NoError(t, err)

	authService := service.NewAuthService(repo, tokens, auth.NewPasswordServiceForTest(4), logger)
	github := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")

	return handler.NewAuthHandler(github, authService, logger), repo
}

// findCookie returns the named Set-Cookie from the response, or nil.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandler_HandleRegister(t *testing.T) {
	t.Run("creates account and sets token cookie", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := httptest.NewRecorder()
		h.HandleRegister(rr, postJSON("/auth/register", `{"email":"ada@example.com","password":"hunter2pass"}`))

		require.Equal(t, http.StatusCreated, rr.Code)

		cookie := findCookie(rr, auth.TokenCookieName)
		require.NotNil(t, cookie, "register must set the token cookie")
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, int(auth.TokenLifetime.Seconds()), cookie.MaxAge)

		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "ada", user.Login)
		assert.Equal(t, "ada@example.com", user.Email)
	})

	t.Run("response never carries password material", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := httptest.NewRecorder()
		h.HandleRegister(rr, postJSON("/auth/register", `{"email":"ada@example.com","password":"hunter2pass"}`))

		require.Equal(t, http.StatusCreated, rr.Code)
		body := strings.ToLower(rr.Body.String())
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "hunter2")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := httptest.NewRecorder()
		h.HandleRegister(rr, postJSON("/auth/register", `{"email":"ada@example.com","password":"hunter2pass"}`))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = httptest.NewRecorder()
		h.HandleRegister(rr, postJSON("/auth/register", `{"email":"ada@example.com","password":"different-pass"}`))

		assert.Equal(t, http.StatusConflict, rr.Code)

		var errRes handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errRes))
		assert.Equal(t, "conflict", errRes.Error)
	})

	t.Run("short password", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := httptest.NewRecorder()
		h.HandleRegister(rr, postJSON("/auth/register", `{"email":"ada@example.com","password":"short"}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var errRes handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errRes))
		assert.Equal(t, "validation_error", errRes.Error)
	})

	t.Run("invalid body", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := httptest.NewRecorder()
		h.HandleRegister(rr, postJSON("/auth/register", `{"email":`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	register := func(t *testing.T, h *handler.AuthHandler) {
		t.Helper()
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, postJSON("/auth/register", `{"email":"ada@example.com","password":"hunter2pass"}`))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	t.Run("valid credentials", func(t *testing.T) {
		h, _ := newAuthHandler(t)
		register(t, h)

		rr := httptest.NewRecorder()
		h.HandleLogin(rr, postJSON("/auth/login", `{"email":"ada@example.com","password":"hunter2pass"}`))

		require.Equal(t, http.StatusOK, rr.Code)

		cookie := findCookie(rr, auth.TokenCookieName)
		require.NotNil(t, cookie, "login must set the token cookie")
		assert.NotEmpty(t, cookie.Value)

		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "ada@example.com", user.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		h, _ := newAuthHandler(t)
		register(t, h)

		rr := httptest.NewRecorder()
		h.HandleLogin(rr, postJSON("/auth/login", `{"email":"ada@example.com","password":"wrong-password"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var errRes handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errRes))
		assert.Equal(t, "unauthorized", errRes.Error)
		assert.Equal(t, "invalid email or password", errRes.Message)
	})

	t.Run("unknown email gets the same answer", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := httptest.NewRecorder()
		h.HandleLogin(rr, postJSON("/auth/login", `{"email":"nobody@example.com","password":"hunter2pass"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var errRes handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errRes))
		// Identical to the wrong-password message, so responses don't reveal
		// which emails have accounts.
		assert.Equal(t, "invalid email or password", errRes.Message)
	})
}

func TestAuthHandler_HandleLogout(t *testing.T) {
	h, _ := newAuthHandler(t)

	rr := httptest.NewRecorder()
	h.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	cookie := findCookie(rr, auth.TokenCookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge, "logout must expire the cookie")
}

func TestAuthHandler_HandleMe(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		h, repo := newAuthHandler(t)

		user := &model.User{Login: "octocat", Email: "octo@example.com", GitHubID: 583231}
		require.NoError(t, repo.CreateUser(context.Background(), user))

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), user.ID)
		rr := httptest.NewRecorder()
		h.HandleMe(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var got model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "octocat", got.Login)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := httptest.NewRecorder()
		h.HandleMe(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown user id", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), "user-gone")
		rr := httptest.NewRecorder()
		h.HandleMe(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAuthHandler_HandleGitHubLogin(t *testing.T) {
	h, _ := newAuthHandler(t)

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	location := rr.Header().Get("Location")
	assert.Contains(t, location, "github.com/login/oauth/authorize")

	state := findCookie(rr, "oauth_state")
	require.NotNil(t, state, "login must set the state cookie")
	assert.True(t, state.HttpOnly)
	assert.NotEmpty(t, state.Value)
	// The state in the redirect URL and the cookie must agree, or the
	// callback would reject our own flow.
	assert.Contains(t, location, "state="+state.Value)
}

func TestAuthHandler_HandleGitHubCallback_RejectsForgedState(t *testing.T) {
	t.Run("missing state cookie", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state=xyz", nil)
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state=forged", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "genuine"})
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("user denied authorization", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?error=access_denied&state=genuine", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "genuine"})
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, req)

		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
	})
}
