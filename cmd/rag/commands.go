package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/news-rag/internal/config"
	"github.com/bull/news-rag/internal/loader"
	"github.com/bull/news-rag/internal/pipeline"
	"github.com/bull/news-rag/internal/rag"
)

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	session, err := pipeline.NewFromConfig(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer session.Close()

	locators := loader.ParseLocators(strings.Join(args, ","))
	fmt.Printf("Indexing %d sources...\n", len(locators))

	result, err := session.Ingest(ctx, locators)
	printIngestResult(result)
	if err != nil {
		return err
	}

	if snapshotPath != "" {
		if err := writeSnapshot(session, snapshotPath); err != nil {
			return err
		}
		fmt.Printf("  Snapshot: %s\n", snapshotPath)
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	session, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	k := topK
	if k <= 0 {
		k = cfg.TopK
	}
	results, err := session.Retrieve(ctx, args[0], k)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No matching fragments.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. [%.4f] %s (fragment %d)\n", i+1, r.Score, r.Fragment.SourceID, r.Fragment.Index)
		if r.Fragment.Section != "" {
			fmt.Printf("   %s\n", r.Fragment.Section)
		}
		fmt.Printf("   %s\n\n", indent(r.Fragment.Text))
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	session, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	answer, err := session.Ask(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	fmt.Println()
	fmt.Println("Sources:")
	for _, r := range answer.Sources {
		fmt.Printf("  - %s (fragment %d, score %.4f)\n", r.Fragment.SourceID, r.Fragment.Index, r.Score)
	}
	return nil
}

// openSession builds a session and fills its index from --snapshot, or by
// ingesting --sources or the configured sources.
func openSession(ctx context.Context, cfg config.Config) (*pipeline.Session, error) {
	session, err := pipeline.NewFromConfig(ctx, cfg, newLogger())
	if err != nil {
		return nil, err
	}

	if snapshotPath != "" {
		if err := readSnapshot(session, snapshotPath); err != nil {
			session.Close()
			return nil, err
		}
		return session, nil
	}

	sources := cfg.Sources
	if len(sourcesFlag) > 0 {
		sources = loader.Dedupe(sourcesFlag)
	}
	if len(sources) == 0 {
		session.Close()
		return nil, fmt.Errorf("%w: pass --snapshot or --sources, or set sources in the config", rag.ErrNoDocumentsLoaded)
	}

	result, err := session.Ingest(ctx, sources)
	if err != nil {
		printIngestResult(result)
		session.Close()
		return nil, err
	}
	for _, failed := range result.FailedSources {
		fmt.Fprintf(os.Stderr, "warning: skipped %s: %s\n", failed.Locator, failed.Reason)
	}
	return session, nil
}

func writeSnapshot(session *pipeline.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := session.SaveSnapshot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readSnapshot(session *pipeline.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return session.LoadSnapshot(f)
}

func printIngestResult(result *pipeline.IngestResult) {
	if result == nil {
		return
	}
	fmt.Println()
	fmt.Printf("  Documents: %d/%d\n", result.LoadedDocs, result.TotalSources)
	fmt.Printf("  Fragments: %d\n", result.TotalFragments)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedSources) > 0 {
		fmt.Println()
		fmt.Println("Failed sources:")
		for _, failed := range result.FailedSources {
			fmt.Printf("  - %s: %s\n", failed.Locator, failed.Reason)
		}
	}
}

// describeError turns pipeline errors into messages that say which part
// of the system failed.
func describeError(err error) string {
	switch {
	case errors.Is(err, rag.ErrNoDocumentsLoaded):
		return fmt.Sprintf("Error: no source data could be loaded: %v", err)
	case errors.Is(err, rag.ErrGenerationTimeout):
		return fmt.Sprintf("Error: generation service timed out: %v", err)
	case errors.Is(err, rag.ErrGenerationUnavailable):
		return fmt.Sprintf("Error: generation service unavailable: %v", err)
	case errors.Is(err, rag.ErrEmbeddingTimeout):
		return fmt.Sprintf("Error: embedding service timed out: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func indent(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n   ")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
