package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// Global flags
	serverURL string
	timeout   int

	// Query command flags
	runID     string
	profile   string
	maxChunks int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "searchctl",
	Short:   "Query the construction-document retrieval service",
	Version: version,
}

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Run an ad-hoc retrieval query",
	Long: `Run an ad-hoc retrieval query against a running retrieval server.

The query is scoped to one indexing run (one corpus version). Results
print as ranked chunks with similarity scores and citations.

Examples:
  # Query the default local server
  searchctl query --run 3f1c... "what fire rating do the doors need?"

  # Query a remote deployment with the danish profile
  searchctl query --server http://rag.internal:9020 --run 3f1c... --profile danish "brandkrav"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var pageCmd = &cobra.Command{
	Use:   "page [title] [query]...",
	Short: "Run pooled page-content retrieval",
	Long: `Run the multi-query page-content retrieval used by wiki generation:
each query is searched separately, results are pooled and deduplicated,
and citation metadata is kept lean.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPage,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "retrieval server base URL")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 30, "request timeout in seconds")

	queryCmd.Flags().StringVar(&runID, "run", "", "indexing run id (required)")
	queryCmd.Flags().StringVar(&profile, "profile", "", "language profile for thresholds")
	_ = queryCmd.MarkFlagRequired("run")

	pageCmd.Flags().StringVar(&runID, "run", "", "indexing run id")
	pageCmd.Flags().StringVar(&profile, "profile", "", "language profile for thresholds")
	pageCmd.Flags().IntVar(&maxChunks, "max-chunks", 0, "cap on pooled chunks (0 = server default)")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(pageCmd)
}

type resultJSON struct {
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
	SourceFilename  string  `json:"source_filename"`
	PageNumber      int     `json:"page_number"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	payload := map[string]any{
		"query":            args[0],
		"indexing_run_id":  runID,
		"language_profile": profile,
	}

	var resp struct {
		Results []resultJSON `json:"results"`
	}
	if err := postJSON(serverURL+"/v1/search", payload, &resp); err != nil {
		return err
	}

	if len(resp.Results) == 0 {
		fmt.Println("No relevant content found.")
		return nil
	}
	printResults(resp.Results)
	return nil
}

func runPage(cmd *cobra.Command, args []string) error {
	payload := map[string]any{
		"page_title":       args[0],
		"queries":          args[1:],
		"indexing_run_id":  runID,
		"language_profile": profile,
		"max_chunks":       maxChunks,
	}

	var resp struct {
		PageTitle string       `json:"page_title"`
		Results   []resultJSON `json:"results"`
		QueryHits []int        `json:"query_hits"`
	}
	if err := postJSON(serverURL+"/v1/pages/content", payload, &resp); err != nil {
		return err
	}

	fmt.Printf("Page %q: %d pooled chunks (hits per query: %v)\n", resp.PageTitle, len(resp.Results), resp.QueryHits)
	printResults(resp.Results)
	return nil
}

func printResults(results []resultJSON) {
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %s p.%d (chunk %s, doc %s)\n", i+1, r.SimilarityScore, r.SourceFilename, r.PageNumber, r.ChunkID, r.DocumentID)
		content := r.Content
		if len(content) > 240 {
			content = content[:240] + "..."
		}
		fmt.Printf("    %s\n", content)
	}
}

func postJSON(url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
