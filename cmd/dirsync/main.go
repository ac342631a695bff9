package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/quietbyte/dirsync/pkg/buildinfo"
	"github.com/quietbyte/dirsync/pkg/hashcache"
	"github.com/quietbyte/dirsync/pkg/plog"
	"github.com/quietbyte/dirsync/pkg/report"
	"github.com/quietbyte/dirsync/pkg/treesync"
)

// logFileName is created in the invocation working directory, next to the
// fingerprint cache.
const logFileName = "dirsync.log"

// action defines a special command to execute instead of a sync run.
type action int

const (
	actionRunSync action = iota // The default action is to run a sync.
	actionShowVersion
)

// init sets up a custom, more descriptive help message for the
// command-line flags.
func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <source> <destination>\n", buildinfo.Name)
		fmt.Fprintf(flag.CommandLine.Output(), "One-way directory synchronization: copies new and changed files from <source> to <destination>.\n\n")
		flag.PrintDefaults()
	}
}

// options is the fully parsed run configuration. All collaborators receive
// it explicitly; nothing is read from ambient globals after parsing.
type options struct {
	source      string
	destination string
	simulate    bool
	verbose     bool
	logLevel    string
	exclude     []string
	workers     int
	retryCount  int
	retryWait   time.Duration
}

// parseFlagConfig defines and parses command-line flags and the two
// positional arguments.
func parseFlagConfig() (action, options, error) {
	var opts options

	flag.BoolVar(&opts.simulate, "simulate", false, "Show what would be done without making any changes.")
	flag.BoolVar(&opts.simulate, "n", false, "Shorthand for -simulate.")
	flag.BoolVar(&opts.verbose, "verbose", false, "Log every file decision instead of showing a progress bar.")
	flag.BoolVar(&opts.verbose, "v", false, "Shorthand for -verbose.")
	versionFlag := flag.Bool("version", false, "Print the application version and exit.")
	logLevelFlag := flag.String("log-level", "", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	excludeFlag := flag.String("exclude", "", "Comma-separated list of additional literal file or directory names to exclude.")
	flag.IntVar(&opts.workers, "workers", 4, "Number of worker goroutines for file synchronization.")
	flag.IntVar(&opts.retryCount, "retry-count", 0, "Number of retries for failed file copies.")
	retryWaitFlag := flag.Int("retry-wait", 1, "Seconds to wait between copy retries.")
	flag.Parse()

	if *versionFlag {
		return actionShowVersion, opts, nil
	}

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		return actionRunSync, opts, fmt.Errorf("expected exactly 2 arguments (source and destination), got %d", len(args))
	}
	opts.source = args[0]
	opts.destination = args[1]

	// Verbose implies debug-level logging unless -log-level overrides it.
	opts.logLevel = *logLevelFlag
	if opts.logLevel == "" {
		if opts.verbose {
			opts.logLevel = "debug"
		} else {
			opts.logLevel = "info"
		}
	}

	for _, name := range strings.Split(*excludeFlag, ",") {
		if name = strings.TrimSpace(name); name != "" {
			opts.exclude = append(opts.exclude, name)
		}
	}
	opts.retryWait = time.Duration(*retryWaitFlag) * time.Second

	return actionRunSync, opts, nil
}

// runSync wires the collaborators together and executes one run.
func runSync(ctx context.Context, opts options) error {
	plog.SetLevel(plog.LevelFromString(opts.logLevel))

	// The log file is best-effort: console logging continues without it.
	if logFile, err := plog.AttachLogFile(logFileName); err != nil {
		plog.Warn("Could not open log file, continuing without it", "path", logFileName, "error", err)
	} else {
		defer logFile.Close()
	}

	plog.Info("Starting "+buildinfo.Name,
		"version", buildinfo.Version,
		"source", opts.source,
		"destination", opts.destination,
		"simulate", opts.simulate,
	)

	cache := hashcache.Load(hashcache.DefaultFileName)

	syncer, err := treesync.New(opts.source, opts.destination, cache, treesync.Options{
		Simulate:   opts.simulate,
		Workers:    opts.workers,
		RetryCount: opts.retryCount,
		RetryWait:  opts.retryWait,
		Exclusions: treesync.NewExclusionSet(opts.exclude...),
		Reporter:   report.NewConsoleReporter(opts.verbose, opts.simulate),
	})
	if err != nil {
		return err
	}

	if _, err := syncer.Run(ctx); err != nil {
		return err
	}
	return nil
}

// run encapsulates the main application logic and returns an error if
// something goes wrong, allowing the main function to handle exit codes.
func run(ctx context.Context) error {
	action, opts, err := parseFlagConfig()
	if err != nil {
		return err
	}

	switch action {
	case actionShowVersion:
		fmt.Printf("%s version %s\n", buildinfo.Name, buildinfo.Version)
		return nil
	case actionRunSync:
		return runSync(ctx, opts)
	default:
		return fmt.Errorf("internal error: unknown action %d", action)
	}
}

func main() {
	// Set up a context that is canceled when an interrupt signal is received.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx); err != nil {
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(1)
	}
}
