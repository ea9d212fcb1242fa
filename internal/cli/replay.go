package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vaultguard/internal/audit"
)

var (
	replayLog    string
	replaySender string
	replayFrom   string
	replayTo     string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayLog, "log", "l", "", "Path to audit log (required)")
	replayCmd.Flags().StringVar(&replaySender, "sender", "", "Only calls from this sender address")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
	replayCmd.MarkFlagRequired("log")
}

var replayCmd = &cobra.Command{
	Use:   "replay [action]",
	Short: "Replay executions from the audit log",
	Long:  "Reads the audit log, filters by action, sender and optional time range,\nand renders a timeline of executions with a revert summary.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	filter, err := replayFilter(args)
	if err != nil {
		return err
	}
	result, err := audit.Replay(replayLog, filter)
	if err != nil {
		return err
	}
	return printReplay(result, replayFormat)
}

func replayFilter(args []string) (audit.ReplayFilter, error) {
	filter := audit.ReplayFilter{Sender: replaySender}
	if len(args) == 1 {
		filter.Action = args[0]
	}

	if replayFrom != "" {
		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return filter, fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
		}
		filter.From = from
	}

	if replayTo != "" {
		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return filter, fmt.Errorf("invalid --to time %q: %w", replayTo, err)
		}
		filter.To = to
	}
	return filter, nil
}
