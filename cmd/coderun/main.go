// Command coderun drives the execution engine from the terminal: it
// compiles and runs a local source file with the same registry, workspaces,
// and timeouts the API server uses.
//
//	coderun run hello.py
//	coderun run --lang cpp --stdin-file input.txt solution.cc
//	coderun languages
//
// The program's stdout and stderr are passed through untouched; the outcome
// summary goes to stderr so piped output stays clean. The exit code follows
// the outcome: 0 for success, the program's own code for runtime errors,
// 124 for timeouts (as timeout(1) uses), 2 for unusable invocations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/thinkfirst/coderunner/internal/executor"
	"github.com/thinkfirst/coderunner/internal/executor/host"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "coderun",
		Usage: "compile and run source files through the code execution engine",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "execute a source file and report the outcome",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "lang",
						Aliases: []string{"l"},
						Usage:   "language identifier or alias (inferred from the file extension when omitted)",
					},
					&cli.StringFlag{
						Name:  "stdin-file",
						Usage: "file fed to the program's standard input",
					},
					&cli.DurationFlag{
						Name:    "timeout",
						Usage:   "wall-clock bound per stage",
						Value:   10 * time.Second,
						Sources: cli.EnvVars("EXEC_STAGE_TIMEOUT"),
					},
					&cli.StringFlag{
						Name:    "base-dir",
						Usage:   "scratch directory for workspaces",
						Sources: cli.EnvVars("EXEC_BASE_DIR"),
					},
					&cli.StringFlag{
						Name:    "languages-file",
						Usage:   "TOML overlay for the language table",
						Sources: cli.EnvVars("EXEC_LANGUAGES_FILE"),
					},
				},
				Action: runAction,
			},
			{
				Name:  "languages",
				Usage: "list supported languages and their aliases",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "languages-file",
						Usage:   "TOML overlay for the language table",
						Sources: cli.EnvVars("EXEC_LANGUAGES_FILE"),
					},
				},
				Action: languagesAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "coderun:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode unwraps a cli.Exit code, defaulting to 1.
func exitCode(err error) int {
	if coder, ok := err.(cli.ExitCoder); ok {
		return coder.ExitCode()
	}
	return 1
}

// extLanguages maps source file extensions to registry identifiers for
// invocations without --lang.
var extLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".java": "java",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".c":    "c",
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("usage: coderun run [--lang LANG] FILE", 2)
	}

	lang := cmd.String("lang")
	if lang == "" {
		lang = extLanguages[strings.ToLower(filepath.Ext(path))]
		if lang == "" {
			return cli.Exit(fmt.Sprintf("cannot infer a language from %q; pass --lang", path), 2)
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading source: %v", err), 2)
	}

	var stdin []byte
	if stdinPath := cmd.String("stdin-file"); stdinPath != "" {
		stdin, err = os.ReadFile(stdinPath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("reading stdin file: %v", err), 2)
		}
	}

	// The engine logs workspace chatter at debug; keep the terminal quiet
	// unless something is actually wrong.
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))

	engine, err := host.New(host.Config{
		BaseDir:       cmd.String("base-dir"),
		StageTimeout:  cmd.Duration("timeout"),
		LanguagesFile: cmd.String("languages-file"),
	}, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	result, err := engine.Execute(ctx, executor.ExecutionRequest{
		Code:     string(source),
		Language: lang,
		Stdin:    string(stdin),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	os.Stdout.WriteString(result.Stdout)
	os.Stderr.WriteString(result.Stderr)
	printSummary(result)

	if code := outcomeExitCode(result); code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

func languagesAction(ctx context.Context, cmd *cli.Command) error {
	registry := host.NewRegistry()
	if path := cmd.String("languages-file"); path != "" {
		var err error
		registry, err = host.NewRegistryFromFile(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	// Group aliases under their canonical identifier.
	aliases := make(map[string][]string)
	for alias, canonical := range registry.Aliases() {
		aliases[canonical] = append(aliases[canonical], alias)
	}

	nameStyle := color.New(color.FgCyan, color.Bold)
	for _, lang := range registry.Languages() {
		list := aliases[lang]
		sort.Strings(list)
		nameStyle.Printf("%-12s", lang)
		fmt.Println(strings.Join(list, ", "))
	}
	return nil
}

// printSummary writes the colored outcome trailer to stderr.
func printSummary(res *executor.ExecutionResult) {
	style, label := outcomeStyle(res.Outcome)

	parts := []string{res.Duration.Round(time.Millisecond).String()}
	if res.Stage != "" {
		parts = append(parts, fmt.Sprintf("stage %s", res.Stage))
	}
	if res.ExitCode != executor.NoExitCode {
		parts = append(parts, fmt.Sprintf("exit %d", res.ExitCode))
	}

	style.Fprint(os.Stderr, label)
	fmt.Fprintf(os.Stderr, " (%s)\n", strings.Join(parts, ", "))
}

func outcomeStyle(outcome executor.Outcome) (*color.Color, string) {
	switch outcome {
	case executor.OutcomeSuccess:
		return color.New(color.FgGreen, color.Bold), "success"
	case executor.OutcomeCompileError:
		return color.New(color.FgRed, color.Bold), "compile error"
	case executor.OutcomeRuntimeError:
		return color.New(color.FgRed, color.Bold), "runtime error"
	case executor.OutcomeTimeout:
		return color.New(color.FgYellow, color.Bold), "timeout"
	case executor.OutcomeUnsupportedLanguage:
		return color.New(color.FgYellow, color.Bold), "unsupported language"
	default:
		return color.New(color.FgWhite), string(outcome)
	}
}

func outcomeExitCode(res *executor.ExecutionResult) int {
	switch res.Outcome {
	case executor.OutcomeSuccess:
		return 0
	case executor.OutcomeRuntimeError:
		return res.ExitCode
	case executor.OutcomeTimeout:
		return 124
	default:
		return 1
	}
}
