package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	pb "github.com/ppiankov/vaultguard/api/vaultguard/v1"
)

var (
	eventsEmitter   string
	eventsName      string
	eventsFromBlock uint64
	eventsToBlock   uint64
	eventsLimit     uint32
	eventsFormat    string
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsEmitter, "emitter", "", "Only events emitted by this name or address")
	eventsCmd.Flags().StringVar(&eventsName, "name", "", "Only events with this name (e.g. Executed)")
	eventsCmd.Flags().Uint64Var(&eventsFromBlock, "from-block", 0, "First block to include")
	eventsCmd.Flags().Uint64Var(&eventsToBlock, "to-block", 0, "Last block to include (0 = latest)")
	eventsCmd.Flags().Uint32Var(&eventsLimit, "limit", 50, "Maximum number of events")
	eventsCmd.Flags().StringVarP(&eventsFormat, "format", "f", "text", "Output format (text|json)")
	addBackendFlags(eventsCmd)
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query indexed events",
	Long: "Lists events recorded by a running daemon (--addr) or stored in a local\n" +
		"event index (--events-db).\n\n" +
		"Examples:\n" +
		"  vaultguard events --addr localhost:50051 --emitter withdrawer\n" +
		"  vaultguard events --events-db ~/.vaultguard/events.db --name Executed",
	RunE: runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	events, err := b.Events(&pb.EventsRequest{
		Emitter:   eventsEmitter,
		Name:      eventsName,
		FromBlock: eventsFromBlock,
		ToBlock:   eventsToBlock,
		Limit:     eventsLimit,
	})
	if err != nil {
		return err
	}
	return printEvents(os.Stdout, events, eventsFormat)
}

func printEvents(w io.Writer, events []pb.Event, format string) error {
	if format == "json" {
		out, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(w, "#%-6d %-22s %-14s %s\n", ev.Block, ev.Name, ev.Emitter, formatArgs(ev.Args))
	}
	return nil
}
