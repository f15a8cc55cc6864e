package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/checkarr/internal/convert"
	"github.com/jmylchreest/checkarr/pkg/m3u"
)

var (
	convertInput  string
	convertOutput string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert channel lists between TXT and M3U",
	Long: `Convert a channel list between the TXT and M3U formats. The direction
follows the file extensions: .txt input with .m3u/.m3u8 output converts
TXT to M3U, and the reverse converts back. Compressed input (gzip, bzip2,
xz) is read transparently.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertInput, "input", "", "input file (required)")
	convertCmd.Flags().StringVar(&convertOutput, "output", "", "output file (required)")
	_ = convertCmd.MarkFlagRequired("input")
	_ = convertCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(convertCmd)
}

// formatExt resolves a path's format extension, looking through compression
// suffixes like result.txt.gz.
func formatExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz", ".bz2", ".xz":
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	return ext
}

func isM3UExt(path string) bool {
	ext := formatExt(path)
	return ext == ".m3u" || ext == ".m3u8"
}

func runConvert(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	f, err := os.Open(convertInput)
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

	converter := convert.New(a.cats, a.logger)

	var out string
	switch {
	case isM3UExt(convertInput) && formatExt(convertOutput) == ".txt":
		out = converter.M3UToTXT(string(data))
	case formatExt(convertInput) == ".txt" && isM3UExt(convertOutput):
		out = converter.TXTToM3U(string(data))
	default:
		return fmt.Errorf("unsupported conversion %s -> %s: use .txt and .m3u/.m3u8",
			filepath.Ext(convertInput), filepath.Ext(convertOutput))
	}

	if err := os.WriteFile(convertOutput, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("wrote %s\n", convertOutput)
	return nil
}
