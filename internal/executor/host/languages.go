package host

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// languageFile is the on-disk shape of a registry overlay. Each [[language]]
// entry either replaces a built-in pipeline (same id) or registers a new one:
//
//	[[language]]
//	id = "python"
//	aliases = ["py", "python3"]
//	source_name = "main.py"
//	run = ["python3.12", "{source}"]
type languageFile struct {
	Languages []languageEntry `toml:"language"`
}

type languageEntry struct {
	ID             string   `toml:"id"`
	Aliases        []string `toml:"aliases"`
	SourceName     string   `toml:"source_name"`
	Compile        []string `toml:"compile"`
	Run            []string `toml:"run"`
	ProducesBinary bool     `toml:"produces_binary"`
}

// NewRegistryFromFile overlays the entries of a TOML languages file onto the
// built-in table, so adding or changing a language is a data change, not a
// code change.
func NewRegistryFromFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("host: reading languages file: %w", err)
	}

	var file languageFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("host: parsing languages file %s: %w", path, err)
	}

	pipelines := builtinPipelines()
	aliases := builtinAliases()

	for i, entry := range file.Languages {
		p, err := entry.pipeline()
		if err != nil {
			return nil, fmt.Errorf("host: languages file %s, entry %d: %w", path, i+1, err)
		}

		replaced := false
		for j := range pipelines {
			if pipelines[j].Language == p.Language {
				pipelines[j] = p
				replaced = true
				break
			}
		}
		if !replaced {
			pipelines = append(pipelines, p)
		}
		for _, alias := range entry.Aliases {
			aliases[strings.ToLower(alias)] = p.Language
		}
	}

	return newRegistry(pipelines, aliases), nil
}

func (e languageEntry) pipeline() (Pipeline, error) {
	id := strings.ToLower(strings.TrimSpace(e.ID))
	if id == "" {
		return Pipeline{}, fmt.Errorf("language id is required")
	}
	if e.SourceName == "" {
		return Pipeline{}, fmt.Errorf("language %q: source_name is required", id)
	}
	if len(e.Run) == 0 {
		return Pipeline{}, fmt.Errorf("language %q: run command is required", id)
	}
	return Pipeline{
		Language:       id,
		SourceName:     e.SourceName,
		Compile:        e.Compile,
		Run:            e.Run,
		ProducesBinary: e.ProducesBinary,
	}, nil
}
