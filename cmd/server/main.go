// Command server runs the code execution API: an authenticated HTTP surface
// over the host execution engine, with a SQLite-backed audit trail.
//
// All configuration comes from the environment (a .env file is loaded when
// present):
//
//	PORT                  listen port (default 8080)
//	DB_PATH               SQLite file (default data/coderunner.db)
//	JWT_SECRET            token signing secret, required (openssl rand -hex 32)
//	GITHUB_CLIENT_ID      OAuth app credentials; GitHub login stays off without them
//	GITHUB_CLIENT_SECRET
//	GITHUB_CALLBACK_URL   defaults to http://localhost:$PORT/auth/github/callback
//	EXEC_BASE_DIR         scratch directory for workspaces
//	EXEC_STAGE_TIMEOUT    per-stage wall clock, e.g. 10s
//	EXEC_LANGUAGES_FILE   optional TOML overlay for the language table
//	LOG_LEVEL             debug | info | warn | error (default info)
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/thinkfirst/coderunner/internal/executor/host"
	"github.com/thinkfirst/coderunner/internal/server"
)

func main() {
	// A .env file is a local-dev convenience; absence is normal.
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel(),
		TimeFormat: time.Kitchen,
	}))

	srvCfg, execCfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine, err := host.New(execCfg, logger)
	if err != nil {
		logger.Error("starting execution engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(srvCfg, engine, logger)
	if err != nil {
		logger.Error("creating server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig() (server.Config, host.Config, error) {
	var srvCfg server.Config
	var execCfg host.Config

	srvCfg.Port = 8080
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return srvCfg, execCfg, fmt.Errorf("invalid PORT %q", v)
		}
		srvCfg.Port = p
	}

	srvCfg.DBPath = "data/coderunner.db"
	if v := os.Getenv("DB_PATH"); v != "" {
		srvCfg.DBPath = v
	}
	if err := os.MkdirAll(filepath.Dir(srvCfg.DBPath), 0o755); err != nil {
		return srvCfg, execCfg, fmt.Errorf("creating database directory: %w", err)
	}

	srvCfg.JWTSecret = os.Getenv("JWT_SECRET")
	if srvCfg.JWTSecret == "" {
		return srvCfg, execCfg, fmt.Errorf("JWT_SECRET is required; generate one with: openssl rand -hex 32")
	}

	srvCfg.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	srvCfg.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	srvCfg.GitHubCallbackURL = os.Getenv("GITHUB_CALLBACK_URL")
	if srvCfg.GitHubCallbackURL == "" {
		srvCfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", srvCfg.Port)
	}

	execCfg = host.DefaultConfig()
	if v := os.Getenv("EXEC_BASE_DIR"); v != "" {
		execCfg.BaseDir = v
	}
	if v := os.Getenv("EXEC_STAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return srvCfg, execCfg, fmt.Errorf("invalid EXEC_STAGE_TIMEOUT %q (want a duration like 10s)", v)
		}
		execCfg.StageTimeout = d
	}
	execCfg.LanguagesFile = os.Getenv("EXEC_LANGUAGES_FILE")

	return srvCfg, execCfg, nil
}
