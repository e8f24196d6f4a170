package host

import (
	"path/filepath"
	"sort"
	"strings"
)

// Pipeline describes how one language is compiled and run. Argv entries may
// contain the placeholders {source}, {binary} and {runname}; they are
// expanded per request, relative to the workspace root.
type Pipeline struct {
	// Language is the canonical identifier, lowercase.
	Language string
	// SourceName is the fixed name of the source file inside the workspace.
	// For class-based runtimes it must match the public class name — that is
	// the caller's precondition, not something the engine validates.
	SourceName string
	// Compile is the compile argv. Empty for interpreted languages.
	Compile []string
	// Run is the run argv. Never empty for a registered language.
	Run []string
	// ProducesBinary reports whether the compile step emits an executable at
	// a path the engine chooses ({binary}). Class-based runtimes leave their
	// artifacts next to the source instead and run by name.
	ProducesBinary bool
}

// RunName is the name the runtime loads for class-based languages: the
// source file's base name without its extension.
func (p Pipeline) RunName() string {
	return strings.TrimSuffix(p.SourceName, filepath.Ext(p.SourceName))
}

// Registry maps language identifiers and their aliases to pipelines. It is
// immutable after construction, so concurrent Resolve calls need no locking.
type Registry struct {
	pipelines map[string]Pipeline
	aliases   map[string]string
}

func builtinPipelines() []Pipeline {
	return []Pipeline{
		{
			Language:   "python",
			SourceName: "main.py",
			Run:        []string{"python3", "{source}"},
		},
		{
			Language:   "javascript",
			SourceName: "main.js",
			Run:        []string{"node", "{source}"},
		},
		{
			Language:   "java",
			SourceName: "Main.java",
			Compile:    []string{"javac", "{source}"},
			Run:        []string{"java", "{runname}"},
		},
		{
			Language:       "cpp",
			SourceName:     "main.cpp",
			Compile:        []string{"g++", "-std=c++17", "-o", "{binary}", "{source}"},
			Run:            []string{"{binary}"},
			ProducesBinary: true,
		},
		{
			Language:       "c",
			SourceName:     "main.c",
			Compile:        []string{"gcc", "-o", "{binary}", "{source}"},
			Run:            []string{"{binary}"},
			ProducesBinary: true,
		},
	}
}

func builtinAliases() map[string]string {
	return map[string]string{
		"py":   "python",
		"js":   "javascript",
		"node": "javascript",
		"c++":  "cpp",
	}
}

// NewRegistry returns a registry holding the built-in language table.
func NewRegistry() *Registry {
	return newRegistry(builtinPipelines(), builtinAliases())
}

func newRegistry(pipelines []Pipeline, aliases map[string]string) *Registry {
	r := &Registry{
		pipelines: make(map[string]Pipeline, len(pipelines)),
		aliases:   make(map[string]string, len(aliases)),
	}
	for _, p := range pipelines {
		r.pipelines[p.Language] = p
	}
	for alias, canonical := range aliases {
		r.aliases[alias] = canonical
	}
	return r
}

// Resolve looks up a pipeline by identifier or alias, case-insensitively.
func (r *Registry) Resolve(language string) (Pipeline, bool) {
	id := strings.ToLower(strings.TrimSpace(language))
	if canonical, ok := r.aliases[id]; ok {
		id = canonical
	}
	p, ok := r.pipelines[id]
	return p, ok
}

// Languages lists the canonical identifiers, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.pipelines))
	for id := range r.pipelines {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for alias, canonical := range r.aliases {
		out[alias] = canonical
	}
	return out
}
