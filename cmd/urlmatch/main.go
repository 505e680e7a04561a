// Package main is the urlmatch CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/urlmatch/internal/cli"
	"github.com/hyperjump/urlmatch/internal/config"
	"github.com/hyperjump/urlmatch/internal/extract"
	"github.com/hyperjump/urlmatch/internal/matcher"
	"github.com/hyperjump/urlmatch/internal/server"
	"github.com/hyperjump/urlmatch/internal/session"
	"github.com/hyperjump/urlmatch/internal/storage"
	"github.com/hyperjump/urlmatch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/urlmatch/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence if it exists (for development). A missing
// default config is not an error: defaults and environment overrides apply.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	config.LoadDotEnv()
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		cfg, err := config.LoadOrDefault(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "check":
		runCheck()
	case "columns":
		runColumns()
	case "version", "--version", "-v":
		fmt.Printf("urlmatch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (uploads, term edits, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("session_store", cfg.Session.Store),
		zap.Duration("session_ttl", cfg.Session.TTL),
	)

	if err := extract.Probe(); err != nil {
		logger.Fatal("Spreadsheet support unavailable", zap.Error(err))
	}

	store, err := storage.NewStore(&cfg.Session)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}
	defer store.Close()

	mgr := session.NewManager(store, extract.NewExtractor(),
		session.WithLogger(logger),
		session.WithPreviewLimit(cfg.Display.PreviewLimit),
	)
	expiryCtx, stopExpiry := context.WithCancel(context.Background())
	defer stopExpiry()
	go mgr.RunExpiry(expiryCtx, cfg.Session.TTL, cfg.Session.CleanupInterval)

	srv := server.NewServer(mgr, store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	stopExpiry()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printCheckUsage prints check subcommand usage.
func printCheckUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: urlmatch check [flags] <file> [url...]\n\n")
	fmt.Fprintf(fs.Output(), "URLs to look for are the remaining arguments, plus one per line from --terms-file (\"-\" for stdin).\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Matching is case-insensitive. A URL equal to a cell is an exact match; a URL
found inside a longer cell is a partial match.

Examples:
  urlmatch check links.xlsx https://example.com/page
  urlmatch check --column Backlinks links.xlsx example.com /blog
  urlmatch check --terms-file wanted.txt --output json links.xlsx
`)
}

// argsReorder moves flags (and their values) that appear among the positional
// arguments to the front so that flag.Parse() sees them, keeping the relative
// order of positionals. Go's flag package stops at the first non-flag argument,
// so "urlmatch check links.xlsx -column B" would otherwise leave -column unparsed.
// Every check flag takes a value, so a flag without "=" consumes the next argument.
// Anything after "--" is positional.
func argsReorder(args []string) []string {
	flags := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case len(a) > 1 && a[0] == '-':
			flags = append(flags, a)
			if !strings.Contains(a, "=") && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		default:
			positional = append(positional, a)
		}
	}
	if len(positional) > 0 && len(flags) > 0 {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}

// readTerms returns one term per non-blank line of r.
func readTerms(r io.Reader) ([]string, error) {
	var terms []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			terms = append(terms, line)
		}
	}
	return terms, sc.Err()
}

func loadTermsFile(path string) ([]string, error) {
	if path == "-" {
		return readTerms(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terms file: %w", err)
	}
	defer f.Close()
	return readTerms(f)
}

// check reads file, selects column and evaluates terms against it.
func check(path, column string, terms []string) (*cli.CheckReport, error) {
	table, err := extract.NewExtractor().Extract(path)
	if err != nil {
		return nil, err
	}
	column, err = extract.SelectColumn(table, column)
	if err != nil {
		return nil, err
	}
	refs, err := extract.ReferenceSet(table, column)
	if err != nil {
		return nil, err
	}
	return &cli.CheckReport{
		File:           filepath.Base(path),
		Column:         column,
		ReferenceCount: len(refs),
		ValidTermCount: len(matcher.ValidTerms(terms)),
		Evaluation:     matcher.Evaluate(terms, refs),
	}, nil
}

func runCheck() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	column := fs.String("column", "", "column holding the URLs (default: first column)")
	termsFile := fs.String("terms-file", "", "file with one URL per line (\"-\" for stdin)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one match per line), or json (parseable)")
	fs.Usage = func() { printCheckUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		printCheckUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	terms := fs.Args()[1:]
	if *termsFile != "" {
		fromFile, err := loadTermsFile(*termsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read terms: %v\n", err)
			os.Exit(1)
		}
		terms = append(terms, fromFile...)
	}
	if len(matcher.ValidTerms(terms)) == 0 {
		fmt.Fprintln(os.Stderr, "No URLs to check; pass them as arguments or with --terms-file")
		os.Exit(1)
	}

	report, err := check(fs.Arg(0), *column, terms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runColumns() {
	fs := flag.NewFlagSet("columns", flag.ExitOnError)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: urlmatch columns <file>")
		os.Exit(1)
	}
	table, err := extract.NewExtractor().Extract(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}
	for _, c := range table.Columns {
		fmt.Println(c)
	}
}

func printUsage() {
	fmt.Println(`urlmatch - Check which URLs appear in a spreadsheet column

Usage:
  urlmatch server [flags]                 Start the web form
  urlmatch check [flags] <file> [url...]  Match URLs against a spreadsheet column
  urlmatch columns <file>                 List the columns of a spreadsheet
  urlmatch version                        Show version
  urlmatch help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/urlmatch/config.yaml)
  --debug            Enable debug logging

Check Flags:
  --column string      Column holding the URLs (default: first column)
  --terms-file string  File with one URL per line ("-" for stdin)
  --output string      Output format: text, compact, or json (default: text)

Environment:
  URLMATCH_HOST, URLMATCH_PORT, URLMATCH_DEBUG, URLMATCH_SESSION_STORE
  override the config file; a .env file in the working directory is loaded first.

Examples:
  urlmatch server
  urlmatch check links.xlsx https://example.com
  urlmatch check --column URL --output json links.xlsx example.com
  urlmatch columns links.xlsx`)
}
