package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

var (
	searchK         int
	searchFetchK    int
	searchDiversity float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve passages from the knowledge base",
	Long: `Retrieves the passages an answer would be grounded on, without calling
the language model. Queries are expanded with related finance terms and
the results are diversified with maximal marginal relevance (MMR).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of passages (default from settings)")
	searchCmd.Flags().IntVar(&searchFetchK, "fetch-k", 0, "MMR candidate pool size (default from settings)")
	searchCmd.Flags().Float64Var(&searchDiversity, "diversity", -1, "MMR diversity in [0, 1] (default from settings)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func searchOverrides(s *domain.AppSettings) {
	if searchK > 0 {
		s.Retrieval.K = searchK
	}
	if searchFetchK > 0 {
		s.Retrieval.FetchK = searchFetchK
	}
	if searchDiversity >= 0 {
		s.Retrieval.Diversity = searchDiversity
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	svc, err := openServices(cmd, NeedStore|NeedAI, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)
	if svc.Search == nil {
		return errors.New("search service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	searchOverrides(settings)

	result := svc.Search.Search(cmd.Context(), query, settings.Retrieval.Options())
	if result.Err != nil {
		cmd.PrintErrf("Warning: %v\n", result.Err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result.Hits)
	}
	return outputSearchTable(cmd, result.Hits)
}

type searchHitJSON struct {
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
	Excerpt string  `json:"excerpt"`
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.Hit) error {
	out := make([]searchHitJSON, 0, len(hits))
	for _, h := range hits {
		c := h.Citation()
		out = append(out, searchHitJSON{
			Title:   c.Title,
			Source:  c.Source,
			Score:   h.Score,
			Text:    h.Text,
			Excerpt: c.Excerpt,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.Hit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, h := range hits {
		c := h.Citation()
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, c.Title, h.Score)
		cmd.Printf("      Source: %s\n", c.Source)
		cmd.Printf("      %s\n", c.Excerpt)
		cmd.Println()
	}
	return nil
}
