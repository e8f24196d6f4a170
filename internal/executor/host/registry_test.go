package host

import (
	"sort"
	"testing"
)

func TestResolve_CanonicalIdentifiers(t *testing.T) {
	r := NewRegistry()

	for _, lang := range []string{"python", "javascript", "java", "cpp", "c"} {
		p, ok := r.Resolve(lang)
		if !ok {
			t.Errorf("Resolve(%q) not found", lang)
			continue
		}
		if p.Language != lang {
			t.Errorf("Resolve(%q).Language = %q", lang, p.Language)
		}
	}
}

func TestResolve_Aliases(t *testing.T) {
	r := NewRegistry()

	cases := map[string]string{
		"py":   "python",
		"js":   "javascript",
		"node": "javascript",
		"c++":  "cpp",
	}
	for alias, canonical := range cases {
		p, ok := r.Resolve(alias)
		if !ok {
			t.Errorf("Resolve(%q) not found", alias)
			continue
		}
		if p.Language != canonical {
			t.Errorf("Resolve(%q).Language = %q, want %q", alias, p.Language, canonical)
		}
	}
}

func TestResolve_CaseInsensitiveAndTrimmed(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"Python", "PYTHON", "  python  ", "PY", "C++", "Node"} {
		if _, ok := r.Resolve(id); !ok {
			t.Errorf("Resolve(%q) not found, want case-insensitive match", id)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"cobol", "", "pyth0n", "c#"} {
		if _, ok := r.Resolve(id); ok {
			t.Errorf("Resolve(%q) found a pipeline, want not found", id)
		}
	}
}

// Every registered pipeline must be runnable: a run command, a source name,
// and a compile step exactly for the compiled languages.
func TestBuiltinTable_Shape(t *testing.T) {
	compiled := map[string]bool{"java": true, "cpp": true, "c": true}

	for _, p := range builtinPipelines() {
		if len(p.Run) == 0 {
			t.Errorf("%s: empty run command", p.Language)
		}
		if p.SourceName == "" {
			t.Errorf("%s: empty source name", p.Language)
		}
		if compiled[p.Language] && len(p.Compile) == 0 {
			t.Errorf("%s: expected a compile step", p.Language)
		}
		if !compiled[p.Language] && len(p.Compile) != 0 {
			t.Errorf("%s: unexpected compile step %v", p.Language, p.Compile)
		}
	}
}

func TestRunName_DerivedFromSourceName(t *testing.T) {
	r := NewRegistry()

	java, ok := r.Resolve("java")
	if !ok {
		t.Fatal("java not registered")
	}
	if got := java.RunName(); got != "Main" {
		t.Errorf("java RunName() = %q, want %q", got, "Main")
	}
}

func TestLanguages_SortedCanonicalIDs(t *testing.T) {
	r := NewRegistry()

	langs := r.Languages()
	if len(langs) != 5 {
		t.Fatalf("Languages() returned %d entries, want 5", len(langs))
	}
	if !sort.StringsAreSorted(langs) {
		t.Errorf("Languages() not sorted: %v", langs)
	}
}

func TestAliases_ReturnsACopy(t *testing.T) {
	r := NewRegistry()

	aliases := r.Aliases()
	aliases["hack"] = "python"

	if _, ok := r.Resolve("hack"); ok {
		t.Error("mutating the Aliases() copy changed the registry")
	}
}
