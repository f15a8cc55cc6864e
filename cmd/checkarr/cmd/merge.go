package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/checkarr/internal/ingest"
	"github.com/jmylchreest/checkarr/internal/merge"
	"github.com/jmylchreest/checkarr/pkg/m3u"
)

var (
	mergeInput  string
	mergeTop    int
	mergeOutput string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Filter a channel list to its dominant source hosts",
	Long: `Count the source hosts behind a TXT channel list, keep only the
channels served by the top-N hosts (plus any channels in categories marked
keep-all), and emit the filtered list with a host statistics header.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeInput, "input", "", "input TXT file (required)")
	mergeCmd.Flags().IntVar(&mergeTop, "top", 3, "number of hosts to retain")
	mergeCmd.Flags().StringVar(&mergeOutput, "output", "", "output file (default: stdout)")
	_ = mergeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	f, err := os.Open(mergeInput)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	reader, err := m3u.DecompressReader(f)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	triples := ingest.Triples(string(data), a.cats)
	out := merge.New(triples, a.cats).Format(mergeTop)

	if mergeOutput == "" {
		fmt.Println(out)
		return nil
	}
	if err := os.WriteFile(mergeOutput, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("wrote %s\n", mergeOutput)
	return nil
}
