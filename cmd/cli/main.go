package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"projectsearch/internal/config"
	"projectsearch/internal/project"
	"projectsearch/internal/search"
)

var (
	rootDir         string
	scopeName       string
	customScopeName string
	moduleName      string
	targetDir       string
	currentFile     string
	openFiles       []string
	masks           []string
	excludes        []string
	excludeGlobs    []string
	caseSensitive   bool
	wholeWord       bool
	useRegex        bool
	replacement     string
	workers         int
	batchSize       int
	configPath      string
	outputFormat    string
	colorFlag       string
	logLevelName    string
	noProgress      bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "projectsearch [flags] QUERY",
		Short: "Find text across a Gradle project",
		Long: `Search the files of a project for a literal string or regular expression.
Results are grouped per file and streamed as they are found.
Example: projectsearch --root ~/src/app --scope module --module :app -m "*.kt" -w TODO`,
		Version:       search.Version,
		Args:          cobra.RangeArgs(0, 1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSearch,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("projectsearch v%s\nBuild Time: %s\nGit Commit: %s\n",
		search.Version, search.BuildTime, search.GitCommit))

	flags := rootCmd.Flags()
	flags.StringVar(&rootDir, "root", ".", "Project root directory")
	flags.StringVar(&scopeName, "scope", "all", "Search scope: all, module, file, directory, custom, current")
	flags.StringVar(&customScopeName, "custom-scope", "all-places", "Custom scope: all-places, project-files, project-and-libraries, project-source-files, open-files")
	flags.StringVar(&moduleName, "module", "", "Module label (:app) or directory for --scope module")
	flags.StringVar(&targetDir, "dir", "", "Directory for --scope directory")
	flags.StringVar(&currentFile, "file", "", "File for --scope current")
	flags.StringSliceVar(&openFiles, "open", nil, "Files treated as open in the editor (custom scope open-files)")
	flags.StringSliceVarP(&masks, "mask", "m", nil, "File masks such as *.kt or Makefile (can be specified multiple times)")
	flags.StringSliceVarP(&excludes, "exclude", "x", nil, "Exclude paths containing this text (can be specified multiple times)")
	flags.StringSliceVar(&excludeGlobs, "exclude-glob", nil, "Exclude paths matching this ** glob (can be specified multiple times)")
	flags.BoolVarP(&caseSensitive, "case-sensitive", "c", false, "Match case")
	flags.BoolVarP(&wholeWord, "word", "w", false, "Match whole words only")
	flags.BoolVarP(&useRegex, "regex", "r", false, "Treat QUERY as a regular expression")
	flags.StringVar(&replacement, "replace", "", "Preview replacing each match with this text")
	flags.IntVar(&workers, "workers", 0, "Number of files scanned concurrently (default: number of CPU cores)")
	flags.IntVar(&batchSize, "batch", 0, "Result items per batch")
	flags.StringVar(&configPath, "config", "", "Config file (default: nearest .projectsearch.{yaml,yml,toml,json})")
	flags.StringVar(&outputFormat, "format", "text", "Output format: text or ndjson")
	flags.StringVar(&colorFlag, "color", "auto", "Colorize output: auto, always or never")
	flags.StringVar(&logLevelName, "log-level", "info", "Log level: debug, info, warning or error")
	flags.BoolVar(&noProgress, "no-progress", false, "Hide the progress spinner")

	return rootCmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("missing QUERY")
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	if err := search.InitLogger("", settings.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer search.CloseLogger()

	proj, err := project.Open(rootDir, settings.SourceDirs)
	if err != nil {
		return err
	}
	if len(openFiles) > 0 {
		proj.SetOpenFiles(absPaths(openFiles))
	}

	cfg, err := buildConfig(args[0], settings, proj)
	if err != nil {
		return err
	}
	search.LogInfo("CLI search in %s: %q scope=%v", proj.ProjectRoot(), cfg.Query, cfg.Scope)

	mode, err := parseColorMode(colorFlag)
	if err != nil {
		return err
	}
	opts := renderOptions{
		root:  proj.ProjectRoot(),
		color: colorEnabled(mode, os.Stdout, os.Getenv),
		width: terminalWidth(os.Stdout),
	}
	if cmd.Flags().Changed("replace") {
		opts.replace = true
		opts.replacement = replacement
		opts.pattern = search.Compile(cfg)
	}
	out, err := newRenderer(outputFormat, os.Stdout, opts)
	if err != nil {
		return err
	}

	return execute(cfg, proj, settings.Options(), out, showProgress())
}

// loadSettings layers defaults, the config file and explicitly set flags
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	settings := config.Defaults()

	path := configPath
	if path == "" {
		if found, ok := config.Find(rootDir); ok {
			path = found
		}
	}
	if path != "" {
		f, err := config.Load(path)
		if err != nil {
			return settings, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := settings.Apply(f); err != nil {
			return settings, fmt.Errorf("config %s: %w", path, err)
		}
	}

	flags := cmd.Flags()
	var err error
	if flags.Changed("scope") {
		if settings.Scope, err = search.ParseScope(scopeName); err != nil {
			return settings, err
		}
	}
	if flags.Changed("custom-scope") {
		if settings.CustomScope, err = search.ParseCustomScope(customScopeName); err != nil {
			return settings, err
		}
	}
	if flags.Changed("log-level") {
		if settings.LogLevel, err = search.ParseLogLevel(logLevelName); err != nil {
			return settings, err
		}
	}
	if flags.Changed("mask") {
		settings.Masks = masks
	}
	if flags.Changed("exclude") {
		settings.Exclude = excludes
	}
	if flags.Changed("exclude-glob") {
		settings.ExcludeGlobs = excludeGlobs
	}
	if flags.Changed("case-sensitive") {
		settings.CaseSensitive = caseSensitive
	}
	if flags.Changed("word") {
		settings.WholeWord = wholeWord
	}
	if flags.Changed("regex") {
		settings.Regex = useRegex
	}
	if flags.Changed("workers") {
		settings.Workers = workers
	}
	if flags.Changed("batch") {
		settings.BatchSize = batchSize
	}

	return settings, settings.Validate()
}

// buildConfig resolves the scope targets against the project
func buildConfig(query string, settings config.Settings, proj *project.Project) (search.SearchConfig, error) {
	cfg := search.SearchConfig{
		Query:           query,
		Replacement:     replacement,
		Scope:           settings.Scope,
		CustomScope:     settings.CustomScope,
		FileMasks:       settings.Masks,
		CaseSensitive:   settings.CaseSensitive,
		WholeWord:       settings.WholeWord,
		UseRegex:        settings.Regex,
		ExcludePatterns: settings.Exclude,
	}

	switch cfg.Scope {
	case search.ScopeModule:
		if moduleName == "" {
			return cfg, errors.New("--module is required for module scope")
		}
		dir, ok := proj.ModuleDir(moduleName)
		if !ok {
			return cfg, fmt.Errorf("unknown module: %s", moduleName)
		}
		cfg.TargetModule = dir
	case search.ScopeDirectory:
		if targetDir == "" {
			return cfg, errors.New("--dir is required for directory scope")
		}
		cfg.TargetDirectory = absPath(targetDir)
	case search.ScopeCurrentFile:
		if currentFile == "" {
			return cfg, errors.New("--file is required for current file scope")
		}
		cfg.CurrentFile = absPath(currentFile)
	}
	return cfg, nil
}

// execute runs one session, streaming batches to out until it completes or is interrupted
func execute(cfg search.SearchConfig, proj *project.Project, opts search.Options, out renderer, progress bool) error {
	session := search.NewSession(proj, opts)

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.Default(-1, "Searching")
	}

	var (
		errMu    sync.Mutex
		writeErr error
		stopOnce sync.Once
	)
	fail := func(err error) {
		errMu.Lock()
		if writeErr == nil {
			writeErr = err
		}
		errMu.Unlock()
		// callbacks must not stop the session synchronously
		stopOnce.Do(func() { go session.Stop() })
	}

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	finished := make(chan struct{})
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nSearch interrupted by user")
			session.Stop()
		case <-finished:
		}
	}()

	session.Start(cfg, func(batch []search.SearchResultItem) {
		if bar != nil {
			bar.Clear()
		}
		if err := out.render(batch); err != nil {
			fail(err)
			return
		}
		if bar != nil {
			bar.Add(len(batch))
		}
	})
	session.Wait()
	close(finished)

	status := session.Status()
	if bar != nil {
		bar.Describe(status)
		bar.Finish()
	}
	search.LogInfo("CLI search finished: %s", status)

	errMu.Lock()
	err := writeErr
	errMu.Unlock()
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return out.finish(status)
}

func showProgress() bool {
	return !noProgress && outputFormat != "ndjson" && isTerminal(os.Stderr)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func absPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, absPath(p))
	}
	return out
}
