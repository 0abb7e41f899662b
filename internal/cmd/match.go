package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahulmurugan/fact-check/internal/corpus"
	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/service"
)

var (
	matchCorpus corpusFlags
	matchIndex  string
	matchTopK   int
	matchClaims string
	matchOutput string
)

var matchCmd = &cobra.Command{
	Use:   "match [claim]",
	Short: "Find evidence for claims",
	Long: `Returns the top matching evidence passages for one claim, or for every
claim of a {"claims": [...]} file given with --claims. Output is JSON with
document_name, matching_text and score per match.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchCorpus.dataDir, "data", "", "build the index from this extraction directory instead of loading it")
	matchCmd.Flags().StringVar(&matchCorpus.docsDir, "docs", "", "build the index from this directory of text documents")
	matchCmd.Flags().StringVar(&matchIndex, "index", "", "saved index directory (default vector_store.dir)")
	matchCmd.Flags().IntVarP(&matchTopK, "top-k", "k", 0, "matches per claim (default matcher.top_k)")
	matchCmd.Flags().StringVar(&matchClaims, "claims", "", "JSON file with the claims to match")
	matchCmd.Flags().StringVarP(&matchOutput, "output", "o", "", "write the JSON results to this file")
	rootCmd.AddCommand(matchCmd)
}

func topK(flag int) int {
	if flag != 0 {
		return flag
	}
	return appConfig.Matcher.TopK
}

func indexDir(flag string) string {
	if flag != "" {
		return flag
	}
	return appConfig.VectorStore.Dir
}

func runMatch(cmd *cobra.Command, args []string) error {
	var claims []string
	switch {
	case matchClaims != "" && len(args) > 0:
		return fmt.Errorf("%w: give a claim or --claims, not both", domain.ErrInvalidConfig)
	case matchClaims != "":
		c, err := corpus.LoadClaims(matchClaims)
		if err != nil {
			return err
		}
		claims = c
	case len(args) == 1:
		claims = args
	default:
		return fmt.Errorf("%w: a claim or --claims is required", domain.ErrInvalidConfig)
	}

	ctx := cmd.Context()
	p, _, cls, err := openPipeline(ctx, appConfig, pipelineOptions{corpus: matchCorpus, indexDir: indexDir(matchIndex)})
	if err != nil {
		return err
	}
	defer cls.Close()

	k := topK(matchTopK)
	if matchClaims == "" {
		matches, err := p.Match(ctx, claims[0], k)
		if err != nil {
			return err
		}
		return writeJSON(cmd, matches, matchOutput)
	}
	results, err := p.MatchClaims(ctx, claims, k)
	if err != nil {
		return err
	}
	return writeJSON(cmd, struct {
		Results []service.ClaimResult `json:"results"`
	}{results}, matchOutput)
}
