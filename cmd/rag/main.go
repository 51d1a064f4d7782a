// Package main provides the rag CLI: index news sources, retrieve
// fragments and ask questions grounded on them.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	snapshotPath string
	sourcesFlag  []string
	topK         int
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:           "rag",
	Short:         "Retrieval-augmented question answering over news sources",
	Long:          "CLI tool that loads web pages, PDFs and files, indexes them in a vector index and answers questions from them.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var indexCmd = &cobra.Command{
	Use:   "index <locator>[,<locator>...] ...",
	Short: "Load sources and build the index",
	Long: `Loads every source locator, splits and embeds the text and builds the index.

Locators may be given as separate arguments or comma-separated. Sources that
fail to load are reported and skipped. With --snapshot the index is written
to a file that retrieve and ask can reuse.

Environment variables:
  OPENAI_API_KEY  OpenAI API key for embeddings (unless embedding_model_name is local-hash)
  GITHUB_TOKEN    GitHub token for higher rate limits (optional)
  RAG_*           Overrides for any config option, e.g. RAG_CHUNK_SIZE`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Print the fragments most similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetrieve,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed sources",
	Long: `Retrieves the most relevant fragments and asks the generation service to
answer from them.

Environment variables:
  GEMINI_API_KEY  Gemini API key (generation_provider: gemini)
  OPENAI_API_KEY  OpenAI API key (generation_provider: openai)`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "", "index snapshot file to write (index) or read (retrieve, ask)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-document progress")

	for _, cmd := range []*cobra.Command{retrieveCmd, askCmd} {
		cmd.Flags().StringSliceVarP(&sourcesFlag, "sources", "s", nil, "source locators to index before querying (comma-separated)")
	}
	retrieveCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of fragments to return (default: top_k from config)")

	rootCmd.AddCommand(indexCmd, retrieveCmd, askCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}
