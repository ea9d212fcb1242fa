package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	pb "github.com/ppiankov/vaultguard/api/vaultguard/v1"
	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/client"
	"github.com/ppiankov/vaultguard/internal/server"
)

var (
	backendAddr     string
	backendAuditLog string
	backendEventsDB string
)

// backend is where exec, inspect and events run: a daemon over gRPC or a
// deployment built in-process.
type backend interface {
	Execute(req *pb.ExecuteRequest) (*pb.ExecuteResponse, error)
	Inspect(name string) (action.Info, string, error)
	Events(req *pb.EventsRequest) ([]pb.Event, error)
	ListActions() (*pb.ListActionsResponse, error)
	Close() error
}

func addBackendFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&backendAddr, "addr", "", "Daemon address (host:port); empty runs against a local deployment")
	cmd.Flags().StringVar(&backendAuditLog, "audit-log", "", "Local mode: append receipts to this audit log")
	cmd.Flags().StringVar(&backendEventsDB, "events-db", "", "Local mode: SQLite event index (default in memory)")
}

func openBackend() (backend, error) {
	if backendAddr != "" {
		return client.New(backendAddr)
	}
	srv, err := server.New(server.Config{
		DeploymentPath: deploymentPath,
		AuditLogPath:   backendAuditLog,
		EventStorePath: backendEventsDB,
	})
	if err != nil {
		return nil, err
	}
	return localBackend{srv: srv}, nil
}

// localBackend calls the service implementation directly.
type localBackend struct {
	srv *server.Server
}

func (l localBackend) Execute(req *pb.ExecuteRequest) (*pb.ExecuteResponse, error) {
	return l.srv.Execute(context.Background(), req)
}

func (l localBackend) Inspect(name string) (action.Info, string, error) {
	resp, err := l.srv.Inspect(context.Background(), &pb.InspectRequest{Action: name})
	if err != nil {
		return action.Info{}, "", err
	}
	var info action.Info
	if err := json.Unmarshal(resp.Info, &info); err != nil {
		return action.Info{}, "", fmt.Errorf("decode %s: %w", name, err)
	}
	return info, resp.ConfigHash, nil
}

func (l localBackend) Events(req *pb.EventsRequest) ([]pb.Event, error) {
	resp, err := l.srv.Events(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (l localBackend) ListActions() (*pb.ListActionsResponse, error) {
	return l.srv.ListActions(context.Background(), &pb.ListActionsRequest{})
}

func (l localBackend) Close() error {
	return l.srv.Close()
}
