package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vaultguard/internal/scenario"
)

var (
	checkScenarios []string
	checkFormat    string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringSliceVar(&checkScenarios, "scenario", nil, "Glob pattern for scenario YAML files (required, repeatable)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.MarkFlagRequired("scenario")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run action assertions from scenario files",
	Long: "Loads scenario YAML files matching a glob pattern, runs each step as a\n" +
		"transaction against a fresh deployment, and compares the outcome with the\n" +
		"expected revert code and events.\n\n" +
		"Exit code 0 if all steps pass, 1 if any fail.\n" +
		"Use in CI to gate deployment changes on guard behavior.",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	results, err := checkResults(checkScenarios, deploymentPath)
	if err != nil {
		return err
	}

	switch checkFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	// Exit 1 if any scenario has failures
	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}
	return nil
}

func checkResults(patterns []string, deployment string) ([]*scenario.RunResult, error) {
	matches, err := scenario.Expand(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scenario files match pattern: %v", patterns)
	}

	var results []*scenario.RunResult
	for _, path := range matches {
		r, err := scenario.LoadAndRun(path, deployment)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, r)
	}
	return results, nil
}
