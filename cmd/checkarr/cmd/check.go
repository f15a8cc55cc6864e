package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/checkarr/internal/models"
)

var (
	checkRule string
	checkDeep bool
)

var checkCmd = &cobra.Command{
	Use:   "check URL",
	Short: "Validate a single stream URL",
	Long: `Probe one stream URL through the full validation pipeline.

On success the channel's TXT and M3U records are printed. The --rule
pattern extracts the numeric channel id from the URL; its {i} placeholder
matches the id digits.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRule, "rule", "/{i}/", "id extraction pattern, {i} matches the channel id")
	checkCmd.Flags().BoolVar(&checkDeep, "deep", false, "run segment reachability and throughput stages")
	rootCmd.AddCommand(checkCmd)
}

// extractChannelID pulls the id digits out of url using the rule pattern.
func extractChannelID(url, rule string) string {
	pattern := strings.ReplaceAll(regexp.QuoteMeta(rule), regexp.QuoteMeta("{i}"), `(\d+)`)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ""
	}
	match := re.FindStringSubmatch(url)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	streamURL := args[0]
	ch := models.NewChannel(extractChannelID(streamURL, checkRule), "")
	ep := models.InternEndpoint(streamURL)

	if !a.prober.Check(cmd.Context(), ch, ep, checkDeep) {
		return fmt.Errorf("stream validation failed: %s", streamURL)
	}

	ch.AddURL(ep)
	fmt.Println(ch.FullBlock(""))
	return nil
}
