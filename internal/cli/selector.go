package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/deploy"
)

var selectorAction string

func init() {
	rootCmd.AddCommand(selectorCmd)
	selectorCmd.Flags().StringVar(&selectorAction, "action", "", "List the selectors of every method of this action")
}

var selectorCmd = &cobra.Command{
	Use:   "selector [signature]",
	Short: "Compute 4-byte selectors used in permission grants",
	Long: "Prints the keccak-256 selector of a function signature, the value\n" +
		"authorize and unauthorize take.\n\n" +
		"Examples:\n" +
		"  vaultguard selector 'withdraw(address,uint256,address,bytes)'\n" +
		"  vaultguard selector --action withdrawer",
	Args: cobra.MaximumNArgs(1),
	RunE: runSelector,
}

func runSelector(cmd *cobra.Command, args []string) error {
	if selectorAction != "" {
		return printMethodSelectors(os.Stdout, deploymentPath, selectorAction)
	}
	if len(args) == 0 {
		return fmt.Errorf("signature or --action required")
	}
	fmt.Println(authority.SelectorOf(args[0]))
	return nil
}

func printMethodSelectors(w io.Writer, path, name string) error {
	cfg, err := deploy.LoadConfig(path)
	if err != nil {
		return err
	}
	d, err := deploy.New(cfg, chain.Real())
	if err != nil {
		return err
	}
	methods, err := d.Methods(name)
	if err != nil {
		return err
	}
	for _, m := range methods {
		fmt.Fprintf(w, "%s  %s\n", m.Selector, strings.TrimSpace(m.Name+" "+m.Usage))
	}
	return nil
}
