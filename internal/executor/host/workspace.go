package host

import (
	"fmt"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/xid"
)

// File names inside a workspace. The source name comes from the pipeline;
// these two are fixed.
const (
	binaryName    = "program"
	stdinFileName = "stdin"
)

// Workspace is the scratch directory exclusively owned by one execution
// request for its lifetime. All paths live under Root and are derived from
// ID; nothing the engine writes for a request lands anywhere else.
type Workspace struct {
	ID         string
	Root       string
	SourcePath string
	BinaryPath string // set only for pipelines that produce a binary
	StdinPath  string // set only when the request carries stdin
}

// workspaceManager hands out collision-free workspace directories under one
// base directory and removes them when the request is done.
type workspaceManager struct {
	base   string
	active mapset.Set[string]
}

func newWorkspaceManager(base string) (*workspaceManager, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("host: creating scratch base %q: %w", base, err)
	}
	return &workspaceManager{
		base:   base,
		active: mapset.NewSet[string](),
	}, nil
}

// Allocate creates a fresh, exclusively-owned workspace directory. An id
// collision means the id space itself is broken, so it is reported as an
// error rather than retried.
func (m *workspaceManager) Allocate() (*Workspace, error) {
	id := xid.New().String()
	root := filepath.Join(m.base, id)

	if !m.active.Add(id) {
		return nil, fmt.Errorf("host: workspace id collision: %s", id)
	}
	if err := os.Mkdir(root, 0o755); err != nil {
		m.active.Remove(id)
		return nil, fmt.Errorf("host: creating workspace %s: %w", id, err)
	}

	return &Workspace{ID: id, Root: root}, nil
}

// Release removes the workspace directory and everything the stages left in
// it: source, stdin file, binary, compiler artifacts such as class files.
// It is idempotent and safe to call on a workspace that is already gone; a
// non-nil return is for logging only, never a reason to fail the request.
func (m *workspaceManager) Release(ws *Workspace) error {
	if ws == nil {
		return nil
	}
	m.active.Remove(ws.ID)
	if err := os.RemoveAll(ws.Root); err != nil {
		return fmt.Errorf("host: removing workspace %s: %w", ws.ID, err)
	}
	return nil
}

// InFlight reports how many workspaces are currently allocated.
func (m *workspaceManager) InFlight() int {
	return m.active.Cardinality()
}
