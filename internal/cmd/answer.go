package cmd

import (
	"github.com/spf13/cobra"
)

var (
	answerCorpus corpusFlags
	answerIndex  string
	answerTopK   int
	answerJSON   bool
)

var answerCmd = &cobra.Command{
	Use:   "answer <claim>",
	Short: "Answer a claim from the matched evidence",
	Long: `Retrieves the top evidence for a claim and writes a short answer from it
with the configured generator (extractive or gemini).`,
	Args: cobra.ExactArgs(1),
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().StringVar(&answerCorpus.dataDir, "data", "", "build the index from this extraction directory instead of loading it")
	answerCmd.Flags().StringVar(&answerCorpus.docsDir, "docs", "", "build the index from this directory of text documents")
	answerCmd.Flags().StringVar(&answerIndex, "index", "", "saved index directory (default vector_store.dir)")
	answerCmd.Flags().IntVarP(&answerTopK, "top-k", "k", 0, "evidence passages to use (default matcher.top_k)")
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "output the answer and its evidence as JSON")
	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, _, cls, err := openPipeline(ctx, appConfig, pipelineOptions{corpus: answerCorpus, indexDir: indexDir(answerIndex), generator: true})
	if err != nil {
		return err
	}
	defer cls.Close()

	ans, err := p.Answer(ctx, args[0], topK(answerTopK))
	if err != nil {
		return err
	}
	if answerJSON {
		return writeJSON(cmd, ans, "")
	}
	if ans.Text == "" {
		cmd.Println("No evidence found.")
		return nil
	}
	cmd.Println(ans.Text)
	cmd.Println()
	cmd.Println("Evidence:")
	for i, m := range ans.Matches {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, m.DocumentName, m.Score)
	}
	return nil
}
