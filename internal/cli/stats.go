package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"voice-assistant/internal/transcript"
)

var (
	statsDay  string
	statsJSON bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise one day of routed turns from the transcript",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	cmd.Flags().StringVar(&statsDay, "day", "", "Day to report as YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&statsJSON, "json", false, "Print JSON instead of text")
	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	day := time.Now().In(loc)
	if statsDay != "" {
		if day, err = time.ParseInLocation(time.DateOnly, statsDay, loc); err != nil {
			return fmt.Errorf("parse --day: %w", err)
		}
	}

	rec, err := transcript.NewFileRecorder(cfg.TranscriptPath())
	if err != nil {
		return err
	}
	events, err := rec.LoadEvents()
	if err != nil {
		return err
	}

	stats := transcript.AnalyzeDay(events, day)
	out := stats.Summary()
	if statsJSON {
		if out, err = stats.ToJSON(); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
