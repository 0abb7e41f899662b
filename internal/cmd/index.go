package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahulmurugan/fact-check/internal/corpus"
	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/vectorstore/memory"
)

var (
	indexCorpus corpusFlags
	indexOut    string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the evidence index",
	Long: `Loads the evidence documents, splits them into word windows, embeds
every window and stores the vectors. An in-memory index is saved to disk
as index.bin plus docstore.db.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexCorpus.dataDir, "data", "", "directory with one extraction sub-directory per document")
	indexCmd.Flags().StringVar(&indexCorpus.docsDir, "docs", "", "directory of .txt/.md documents")
	indexCmd.Flags().StringVarP(&indexOut, "out", "o", "", "where to save the index (default vector_store.dir)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexCorpus.empty() {
		return fmt.Errorf("%w: --data or --docs is required", domain.ErrInvalidConfig)
	}
	ctx := cmd.Context()
	p, summary, cls, err := openPipeline(ctx, appConfig, pipelineOptions{corpus: indexCorpus})
	if err != nil {
		return err
	}
	defer cls.Close()

	for _, rep := range summary.Sources {
		switch rep.Status {
		case corpus.StatusFailed:
			cmd.Printf("  %-30s failed: %v\n", rep.Source, rep.Err)
		default:
			cmd.Printf("  %-30s %s, %d record(s), %d dropped\n", rep.Source, rep.Status, rep.Records, rep.Dropped)
		}
	}
	cmd.Printf("Indexed %d chunk(s) from %d record(s), dimension %d\n", summary.Chunks, summary.Records, summary.Dimension)

	mem, ok := p.Index().(*memory.Index)
	if !ok {
		return nil
	}
	dir := indexOut
	if dir == "" {
		dir = appConfig.VectorStore.Dir
	}
	if err := mem.Save(ctx, dir); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	cmd.Printf("Saved index to %s\n", dir)
	return nil
}
