package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"media-index/internal/database"
	"media-index/internal/indexer"
	"media-index/internal/logging"
	"media-index/internal/media"
	"media-index/internal/repository"
	"media-index/internal/startup"
)

const (
	commandUpdate  = "update"
	commandRebuild = "rebuild"
	commandStatus  = "status"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(exitUsage)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	cfg, err := startup.LoadToolConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
	media.SetFFprobePath(cfg.FFprobePath)

	code := run(ctx, cfg, os.Args[1], os.Args[2:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes command and returns the exit code.
func run(ctx context.Context, cfg *startup.Config, command string, ids []string, stdout, stderr io.Writer) int {
	var mode indexer.Mode
	switch command {
	case commandUpdate:
		mode = indexer.ModeUpdate
	case commandRebuild:
		mode = indexer.ModeRebuild
	case commandStatus:
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(stderr)
		return exitUsage
	}

	db, err := database.New(ctx, cfg.IndexPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: Failed to open index: %v\n", err)
		fmt.Fprintf(stderr, "Make sure INDEX_PATH is set correctly (current: %s)\n", cfg.IndexPath)
		return exitError
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close index: %v\n", err)
		}
	}()

	if command == commandStatus {
		if err := showStatus(ctx, db, cfg, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	registry, err := startup.OpenRepositories(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logging.Warn("failed to close repositories: %v", err)
		}
	}()

	adapters, err := selectAdapters(registry, ids)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	builder := indexer.NewBuilder(db, cfg.IndexWorkers)
	results := make([]indexer.BuildResult, 0, len(adapters))
	for _, a := range adapters {
		res, err := builder.Build(ctx, a, mode)
		if err != nil {
			printResults(stdout, results)
			fmt.Fprintf(stderr, "Error: %s of %s failed: %v\n", mode, a.ID(), err)
			return exitError
		}
		results = append(results, res)
	}
	printResults(stdout, results)
	return exitOK
}

func selectAdapters(registry *repository.Registry, ids []string) ([]repository.Adapter, error) {
	if len(ids) == 0 {
		return registry.All(), nil
	}
	adapters := make([]repository.Adapter, 0, len(ids))
	for _, id := range ids {
		a, err := registry.Get(id)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func printResults(w io.Writer, results []indexer.BuildResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPOSITORY\tMODE\tSEEN\tADDED\tUPDATED\tSKIPPED\tFAILED\tDELETED\tDURATION")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%v\n",
			r.RepositoryID, r.Mode, r.Seen, r.Added, r.Updated, r.Skipped, r.Failed, r.Deleted,
			r.Duration.Round(time.Millisecond))
	}
	_ = tw.Flush()
}

// showStatus lists every configured repository, including disabled ones
// and ones without records.
func showStatus(ctx context.Context, db *database.Database, cfg *startup.Config, w io.Writer) error {
	stats, err := db.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPOSITORY\tTYPE\tSTATE\tRECORDS\tLAST BUILD")
	for _, r := range cfg.Repositories {
		state := "enabled"
		if !r.IsEnabled() {
			state = "disabled"
		}
		last, err := db.GetLastBuild(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("failed to read last build of %s: %w", r.ID, err)
		}
		lastBuild := "never"
		if !last.IsZero() {
			lastBuild = last.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Type, state, stats.Repositories[r.ID], lastBuild)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d records (%d images, %d videos, %d other), %d tags\n",
		stats.TotalRecords, stats.TotalImages, stats.TotalVideos, stats.TotalOther, stats.TotalTags)
	return nil
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Index Maintenance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: reindex <command> [repository...]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  update   - Index new and changed files, evict vanished ones")
	fmt.Fprintln(w, "  rebuild  - Drop and re-create the records of each repository")
	fmt.Fprintln(w, "  status   - Show record counts and last builds")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  INDEX_PATH  - Path of the index database (default: /database/index.db)")
	fmt.Fprintln(w, "  CONFIG_FILE - Repository config file (default: /config/media-index.yaml)")
	fmt.Fprintln(w, "  MEDIA_DIR   - Local repository used without a config file (default: /media)")
}
