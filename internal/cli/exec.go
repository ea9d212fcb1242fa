package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	pb "github.com/ppiankov/vaultguard/api/vaultguard/v1"
	"github.com/ppiankov/vaultguard/internal/deploy"
)

var (
	execSender      string
	execGasPrice    string
	execMaxFee      string
	execPriorityFee string
	execFormat      string
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVar(&execSender, "sender", "", "Sender account name or address (default deployer)")
	execCmd.Flags().StringVar(&execGasPrice, "gas-price", "", "Legacy gas price (default "+deploy.DefaultGasPrice+")")
	execCmd.Flags().StringVar(&execMaxFee, "max-fee", "", "EIP-1559 max fee per gas")
	execCmd.Flags().StringVar(&execPriorityFee, "priority-fee", "", "EIP-1559 max priority fee per gas")
	execCmd.Flags().StringVarP(&execFormat, "format", "f", "text", "Output format (text|json)")
	addBackendFlags(execCmd)
}

var execCmd = &cobra.Command{
	Use:   "exec <action> <method> [args...]",
	Short: "Execute an action method",
	Long: "Sends one transaction calling a method of a deployed action and prints\n" +
		"the receipt. Amounts take wei, gwei or ether units; addresses may be names\n" +
		"from the deployment. Exits 1 when the call reverts.\n\n" +
		"Examples:\n" +
		"  vaultguard exec withdrawer call USDC \"100 ether\" --sender relayer\n" +
		"  vaultguard exec swapper setTrustedSigners true 0xabc... --addr localhost:50051",
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	resp, err := b.Execute(&pb.ExecuteRequest{
		Action:      args[0],
		Method:      args[1],
		Sender:      execSender,
		Args:        args[2:],
		GasPrice:    execGasPrice,
		MaxFee:      execMaxFee,
		PriorityFee: execPriorityFee,
	})
	if err != nil {
		return err
	}
	if err := printReceipt(os.Stdout, resp, execFormat); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("call %s: %s", resp.Status, resp.Code)
	}
	return nil
}

func printReceipt(w io.Writer, resp *pb.ExecuteResponse, format string) error {
	if format == "json" {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	if !resp.Success {
		fmt.Fprintf(w, "%s  %s\n", strings.ToUpper(resp.Status), resp.Code)
		if resp.Reason != "" {
			fmt.Fprintf(w, "  %s\n", resp.Reason)
		}
		if resp.TxID != "" {
			fmt.Fprintf(w, "  tx %s  block %d  gas %d\n", resp.TxHash, resp.Block, resp.GasUsed)
		}
		return nil
	}

	fmt.Fprintf(w, "SUCCESS  tx %s  block %d  gas %d @ %s wei\n", resp.TxHash, resp.Block, resp.GasUsed, resp.EffectiveGasPrice)
	for _, ev := range resp.Events {
		fmt.Fprintf(w, "  %-22s %-14s %s\n", ev.Name, ev.Emitter, formatArgs(ev.Args))
	}
	return nil
}

func formatArgs(args []pb.EventArg) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.Key+"="+a.Value)
	}
	return strings.Join(parts, " ")
}
