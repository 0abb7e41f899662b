package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rahulmurugan/fact-check/internal/tui"
)

var (
	tuiCorpus corpusFlags
	tuiIndex  string
	tuiTopK   int
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Search evidence interactively",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiCorpus.dataDir, "data", "", "build the index from this extraction directory instead of loading it")
	tuiCmd.Flags().StringVar(&tuiCorpus.docsDir, "docs", "", "build the index from this directory of text documents")
	tuiCmd.Flags().StringVar(&tuiIndex, "index", "", "saved index directory (default vector_store.dir)")
	tuiCmd.Flags().IntVarP(&tuiTopK, "top-k", "k", 0, "matches per claim (default matcher.top_k)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, _, cls, err := openPipeline(ctx, appConfig, pipelineOptions{corpus: tuiCorpus, indexDir: indexDir(tuiIndex)})
	if err != nil {
		return err
	}
	defer cls.Close()

	idx := p.Index()
	summary := fmt.Sprintf("%d chunk(s), metric %s", idx.Len(), idx.Metric())
	_, err = tea.NewProgram(tui.New(p, topK(tuiTopK), summary), tea.WithAltScreen()).Run()
	return err
}
