package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	pb "github.com/ppiankov/vaultguard/api/vaultguard/v1"
	"github.com/ppiankov/vaultguard/internal/action"
)

var inspectFormat string

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "text", "Output format (text|json)")
	addBackendFlags(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [action]",
	Short: "Show an action's configuration, or list every action",
	Long: "With an action name prints its permissions, guard settings and custom\n" +
		"parameters. Without one lists the deployed actions and their methods.",
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	if len(args) == 0 {
		resp, err := b.ListActions()
		if err != nil {
			return err
		}
		return printActions(os.Stdout, resp, inspectFormat)
	}

	info, hash, err := b.Inspect(args[0])
	if err != nil {
		return err
	}
	return printInfo(os.Stdout, info, hash, inspectFormat)
}

func printActions(w io.Writer, resp *pb.ListActionsResponse, format string) error {
	if format == "json" {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}
	fmt.Fprintf(w, "Deployment: %s\n\n", resp.ConfigHash)
	for _, a := range resp.Actions {
		state := ""
		if a.Paused {
			state = "  [paused]"
		}
		fmt.Fprintf(w, "%s (%s) %s%s\n", a.Name, a.Kind, a.Address, state)
		for _, m := range a.Methods {
			fmt.Fprintf(w, "  %s  %s\n", m.Selector, strings.TrimSpace(m.Name+" "+m.Usage))
		}
	}
	return nil
}

func printInfo(w io.Writer, info action.Info, hash, format string) error {
	if format == "json" {
		out, err := json.MarshalIndent(struct {
			ConfigHash string      `json:"config_hash"`
			Action     action.Info `json:"action"`
		}{hash, info}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	fmt.Fprintf(w, "%s (%s)\n", info.Name, info.Kind)
	fmt.Fprintf(w, "  address:       %s\n", info.Address)
	fmt.Fprintf(w, "  vault:         %s\n", info.Vault)
	fmt.Fprintf(w, "  call selector: %s\n", info.CallSelector)
	fmt.Fprintf(w, "  paused:        %t\n", info.Paused)
	if len(info.Permissions) > 0 {
		fmt.Fprintln(w, "  permissions:")
		for _, p := range info.Permissions {
			fmt.Fprintf(w, "    %s -> %s\n", p.Who, p.What)
		}
	}
	printMap(w, "custom params", info.CustomParams)
	printMap(w, "settings", info.Settings)

	// Guard sections are nested; JSON keeps their shape readable.
	guards := map[string]any{}
	if info.Threshold != nil {
		guards["threshold"] = info.Threshold
	}
	if info.Acceptance != nil {
		guards["tokens_acceptance"] = info.Acceptance
	}
	if info.TimeLock != nil {
		guards["time_lock"] = info.TimeLock
	}
	if info.Signers != nil {
		guards["trusted_signers"] = info.Signers
	}
	if info.GasLimit != nil {
		guards["gas_limit"] = info.GasLimit
	}
	if info.Relayers != nil {
		guards["relayers"] = info.Relayers
	}
	if len(guards) > 0 {
		out, err := json.MarshalIndent(guards, "    ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  guards:\n    %s\n", out)
	}
	return nil
}

func printMap(w io.Writer, title string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "  %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "    %-16s %s\n", k, m[k])
	}
}
