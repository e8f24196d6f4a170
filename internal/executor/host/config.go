package host

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the configuration for host-process execution.
type Config struct {
	// BaseDir is the shared scratch directory. Every execution gets its own
	// subdirectory under it and never touches anything outside that.
	BaseDir string
	// StageTimeout is the wall-clock bound for a single stage. It applies
	// independently to the compile stage and the run stage, so a slow
	// compile does not eat into the run budget.
	StageTimeout time.Duration
	// LanguagesFile optionally points at a TOML file whose entries replace
	// or extend the built-in language table. Empty means built-ins only.
	LanguagesFile string
}

// DefaultConfig provides sensible defaults for local execution.
func DefaultConfig() Config {
	return Config{
		BaseDir:      filepath.Join(os.TempDir(), "coderunner"),
		StageTimeout: 10 * time.Second,
	}
}
