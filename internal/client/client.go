package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	pb "github.com/ppiankov/vaultguard/api/vaultguard/v1"
	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/chain"
)

// DefaultTimeout bounds every RPC.
const DefaultTimeout = 5 * time.Second

// CodeUnreachable is the code of the synthetic receipt returned when the
// daemon cannot be reached.
const CodeUnreachable = "DAEMON_UNREACHABLE"

// Client connects to a vaultguard daemon.
type Client struct {
	conn    *grpc.ClientConn
	client  pb.ActionServiceClient
	timeout time.Duration
}

// New creates a gRPC client connected to the given address.
// Fail-closed: if the daemon is unreachable, Execute reports a rejection.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return &Client{
		conn:    conn,
		client:  pb.NewActionServiceClient(conn),
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout changes the per-RPC timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Execute sends an invocation to the daemon. Reverts come back in the
// response. Fail-closed: an unreachable daemon yields a rejected response
// and no error.
func (c *Client) Execute(req *pb.ExecuteRequest) (*pb.ExecuteResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.Execute(ctx, req)
	if err != nil {
		switch status.Code(err) {
		case codes.Unavailable, codes.DeadlineExceeded:
			return &pb.ExecuteResponse{
				Status: string(chain.StatusRejected),
				Code:   CodeUnreachable,
				Reason: fmt.Sprintf("daemon unreachable: %v", err),
			}, nil
		}
		return nil, err
	}
	return resp, nil
}

// Inspect returns the named action's configuration and the hash of the
// deployment serving it.
func (c *Client) Inspect(name string) (action.Info, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.Inspect(ctx, &pb.InspectRequest{Action: name})
	if err != nil {
		return action.Info{}, "", err
	}
	var info action.Info
	if err := json.Unmarshal(resp.Info, &info); err != nil {
		return action.Info{}, "", fmt.Errorf("decode %s: %w", name, err)
	}
	return info, resp.ConfigHash, nil
}

// Events queries the daemon's event index.
func (c *Client) Events(req *pb.EventsRequest) ([]pb.Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.Events(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// ListActions returns every action the daemon serves.
func (c *Client) ListActions() (*pb.ListActionsResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	return c.client.ListActions(ctx, &pb.ListActionsRequest{})
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
