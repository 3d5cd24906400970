package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dirsweep/internal/config"
	"dirsweep/internal/exitcodes"
	"dirsweep/internal/history"
	"dirsweep/internal/logging"
	"dirsweep/internal/metrics"
	"dirsweep/internal/report"
	"dirsweep/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "/etc/dirsweep/config.yaml", "Path to configuration file")
	root := flag.String("root", "", "Directory tree to sweep (overrides config)")
	days := flag.Int("days", -1, "Days without access before an entry is deleted (overrides config)")
	logPath := flag.String("log", "", "Sweep log file (overrides config)")
	exclude := flag.String("exclude", "", "Comma-separated paths relative to root to exclude (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Identify and log candidates without deleting")
	verbose := flag.Bool("verbose", false, "Verbose logging, including the excluded-dirs listing")
	dirAgeCheck := flag.Bool("dir-age-check", false, "Gate empty-directory removal on the directory's own access age")
	once := flag.Bool("once", true, "Run one sweep and exit")
	daemon := flag.Bool("daemon", false, "Keep running, sweeping at the configured interval")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.New().Printf("ERROR: Failed to load config: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}

	// Flags given explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = *root
		case "days":
			cfg.MaxAgeDays = *days
		case "log":
			cfg.Log.Path = *logPath
		case "exclude":
			cfg.Excluded = splitList(*exclude)
		case "dry-run":
			cfg.DryRun = *dryRun
		case "verbose":
			cfg.Verbose = *verbose
		case "dir-age-check":
			cfg.DirAgeCheck = *dirAgeCheck
		}
	})
	runOnce := *once && !*daemon

	logger := logging.New()
	if *daemon {
		logger = logging.NewWithFile()
	}

	if err := cfg.ValidateAndDefault(); err != nil {
		logger.Printf("ERROR: Invalid configuration: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}

	// The sweep assumes an existing root; verify before any traversal.
	info, err := os.Stat(cfg.Root)
	if err != nil || !info.IsDir() {
		logger.Printf("ERROR: Root is not an existing directory: %s", cfg.Root)
		os.Exit(exitcodes.InvalidConfig)
	}

	logger.Printf("dirsweep starting, root=%s threshold=%dd", cfg.Root, cfg.MaxAgeDays)
	if cfg.DryRun {
		logger.Println("DRY RUN MODE: no entries will be deleted")
	}

	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		metrics.StartServer(cfg.PrometheusAddress(), logger)
	}

	// A sweep log that cannot be opened is fatal before any traversal.
	sweepLog, err := report.OpenFile(cfg.Log)
	if err != nil {
		logger.Printf("ERROR: Failed to open sweep log: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}
	defer sweepLog.Close()

	var db *history.DB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening sweep history: %s", cfg.DatabasePath)
		db, err = history.Open(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open history database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close history database: %v", err)
			}
		}()
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	deps := scheduler.Deps{Logger: logger, Report: sweepLog, History: db}
	if runOnce {
		if err := scheduler.RunOnce(ctx, cfg, deps); err != nil {
			logger.Printf("ERROR: Sweep failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		logger.Println("Sweep completed successfully")
	} else {
		if err := scheduler.Run(ctx, cfg, deps); err != nil && err != context.Canceled {
			logger.Printf("ERROR: Scheduler failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
	}

	logger.Println("dirsweep stopped")
}

// loadConfig reads the config file when present; a missing file is
// fine as long as flags supply root and threshold. Validation runs
// after flag overrides are merged.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &config.Config{}, nil
	}
	return config.Read(path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
