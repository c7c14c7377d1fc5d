package main

import (
	"github.com/spf13/cobra"

	"github.com/behemotion/docbro/internal/retrieval"
)

var (
	searchBox      string
	searchStrategy string
	searchTopK     int
	searchRerank   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a box's indexed content",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchBox, "box", "", "box to search (required)")
	searchCmd.Flags().StringVar(&searchStrategy, "strategy", string(retrieval.StrategySemantic), "semantic, hybrid, fusion, or advanced")
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 10, "number of results")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "apply freshness/title-match reranking")
	_ = searchCmd.MarkFlagRequired("box")
}

func runSearch(cmd *cobra.Command, args []string) error {
	box, err := application.Meta.GetBoxByName(cmd.Context(), searchBox)
	if err != nil {
		return err
	}

	results, err := application.Retrieve.Run(cmd.Context(), retrieval.Query{
		Text: args[0], BoxID: box.ID, TopK: searchTopK,
		Strategy: retrieval.Strategy(searchStrategy), Rerank: searchRerank,
		Synonyms: application.Synonyms,
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		cmd.Println("no results")
		return nil
	}
	for i, r := range results {
		cmd.Printf("%d. [%.4f] %s\n   %s\n", i+1, r.Score, r.PageURL, truncate(r.Text, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
