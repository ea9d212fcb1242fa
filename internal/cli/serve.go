package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/ppiankov/vaultguard/internal/deploy"
	"github.com/ppiankov/vaultguard/internal/server"
)

var (
	servePort     int
	serveAuditLog string
	serveEventsDB string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 50051, "gRPC listen port")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to audit log JSONL file")
	serveCmd.Flags().StringVar(&serveEventsDB, "events-db", "", "Path to SQLite event index (default in memory)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC action daemon",
	Long: "Runs vaultguard as a daemon over gRPC. Clients execute action methods,\n" +
		"inspect guard configuration and query emitted events.\n" +
		"The deployment file is hot-reloaded on change; a reload starts a fresh chain.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path := deploymentPath
	if path == "" {
		if p, err := deploy.DefaultPath(); err == nil {
			path = p
		}
	}

	srv, err := server.New(server.Config{
		Port:           servePort,
		DeploymentPath: path,
		AuditLogPath:   serveAuditLog,
		EventStorePath: serveEventsDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	reloader, err := server.NewReloader(srv, []string{path})
	if err != nil {
		log.Warn("Hot-reload disabled", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if reloader != nil {
		go reloader.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down action daemon...")
		cancel()
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "vaultguard daemon listening on :%d\n", servePort)
	fmt.Fprintf(os.Stderr, "Deployment: %s (%s)\n", path, srv.Node().ConfigHash())
	if reloader != nil && len(reloader.Paths()) > 0 {
		fmt.Fprintln(os.Stderr, "Hot-reload enabled")
	}
	if serveAuditLog != "" {
		fmt.Fprintf(os.Stderr, "Audit log: %s\n", serveAuditLog)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Serve()
}
