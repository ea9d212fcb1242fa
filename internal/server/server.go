package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/ppiankov/vaultguard/api/vaultguard/v1"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/deploy"
	"github.com/ppiankov/vaultguard/internal/eventstore"
	"github.com/ppiankov/vaultguard/internal/node"
	"github.com/ppiankov/vaultguard/internal/ratelimit"
)

// ErrorDomain tags the ErrorInfo details attached to failed RPCs.
const ErrorDomain = "vaultguard.dev"

// Config holds gRPC server configuration.
type Config struct {
	Port           int
	DeploymentPath string
	AuditLogPath   string
	EventStorePath string
	// Clock drives block timestamps. Nil uses wall time.
	Clock chain.Clock
}

// Server implements the ActionService gRPC server over a node.
type Server struct {
	node *node.Node
	cfg  Config

	grpcServer *grpc.Server
}

// New creates a gRPC server serving the configured deployment.
func New(cfg Config) (*Server, error) {
	n, err := node.New(node.Options{
		DeploymentPath: cfg.DeploymentPath,
		AuditLog:       cfg.AuditLogPath,
		EventStore:     cfg.EventStorePath,
		Clock:          cfg.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start node: %w", err)
	}

	s := &Server{
		node:       n,
		cfg:        cfg,
		grpcServer: grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary)),
	}
	pb.RegisterActionServiceServer(s.grpcServer, s)
	return s, nil
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	log.Info("Serving ActionService", "addr", lis.Addr(), "config", s.node.ConfigHash())
	return s.grpcServer.Serve(lis)
}

// ServeOn starts the gRPC server on the given listener. For testing.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Close releases the node's audit log and event store.
func (s *Server) Close() error {
	return s.node.Close()
}

// Node returns the node behind the server.
func (s *Server) Node() *node.Node { return s.node }

// ReloadDeployment rebuilds the deployment from its file.
// Called by the hot-reloader on file change.
func (s *Server) ReloadDeployment() error {
	return s.node.Reload()
}

// Execute implements the Execute RPC. Reverts are returned in the
// response, not as RPC errors.
func (s *Server) Execute(ctx context.Context, req *pb.ExecuteRequest) (*pb.ExecuteResponse, error) {
	if req.Action == "" || req.Method == "" {
		return nil, rpcError(codes.InvalidArgument, "MISSING_FIELD", errors.New("action and method are required"))
	}
	r, err := s.node.Execute(ctx, node.Call{
		Action: req.Action,
		Method: req.Method,
		Sender: req.Sender,
		Args:   req.Args,
		Fees:   deploy.Fees{GasPrice: req.GasPrice, MaxFee: req.MaxFee, PriorityFee: req.PriorityFee},
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return ReceiptToProto(r, s.node.Deployment().Label), nil
}

// Inspect implements the Inspect RPC.
func (s *Server) Inspect(ctx context.Context, req *pb.InspectRequest) (*pb.InspectResponse, error) {
	info, err := s.node.Inspect(req.Action)
	if err != nil {
		return nil, toStatus(err)
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode %s: %v", req.Action, err)
	}
	return &pb.InspectResponse{Action: info.Name, ConfigHash: s.node.ConfigHash(), Info: raw}, nil
}

// Events implements the Events RPC.
func (s *Server) Events(ctx context.Context, req *pb.EventsRequest) (*pb.EventsResponse, error) {
	records, err := s.node.Events(ctx, node.EventQuery{
		Emitter:   req.Emitter,
		Name:      req.Name,
		FromBlock: req.FromBlock,
		ToBlock:   req.ToBlock,
		Limit:     int(req.Limit),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	label := s.node.Deployment().Label
	out := &pb.EventsResponse{Events: make([]pb.Event, 0, len(records))}
	for _, rec := range records {
		out.Events = append(out.Events, recordToProto(rec, label))
	}
	return out, nil
}

// ListActions implements the ListActions RPC.
func (s *Server) ListActions(ctx context.Context, req *pb.ListActionsRequest) (*pb.ListActionsResponse, error) {
	actions, err := s.node.Actions()
	if err != nil {
		return nil, toStatus(err)
	}
	out := &pb.ListActionsResponse{ConfigHash: s.node.ConfigHash()}
	for _, a := range actions {
		sum := pb.ActionSummary{Name: a.Name, Kind: a.Kind, Address: a.Address.Hex(), Paused: a.Paused}
		for _, m := range a.Methods {
			sum.Methods = append(sum.Methods, pb.Method{Name: m.Name, Usage: m.Usage, Selector: m.Selector})
		}
		out.Actions = append(out.Actions, sum)
	}
	return out, nil
}

// ReceiptToProto converts a receipt, naming emitters with label.
func ReceiptToProto(r *chain.Receipt, label func(common.Address) string) *pb.ExecuteResponse {
	resp := &pb.ExecuteResponse{
		TxID:              r.ID,
		TxHash:            r.TxHash.Hex(),
		Block:             r.Block,
		Success:           r.Succeeded(),
		Status:            string(r.Status),
		Code:              r.Code,
		GasUsed:           r.GasUsed,
		EffectiveGasPrice: "0",
	}
	if !r.Time.IsZero() {
		resp.Timestamp = r.Time.UTC().Format("2006-01-02T15:04:05Z")
	}
	if r.Err != nil {
		resp.Reason = r.Err.Error()
	}
	if r.EffectiveGasPrice != nil {
		resp.EffectiveGasPrice = r.EffectiveGasPrice.String()
	}
	for _, ev := range r.Events {
		resp.Events = append(resp.Events, pb.Event{
			TxID:    r.ID,
			Block:   r.Block,
			Address: ev.Address.Hex(),
			Emitter: label(ev.Address),
			Name:    ev.Name,
			Args:    pb.ArgsFromMap(ev.Fields()),
		})
	}
	return resp
}

func recordToProto(rec eventstore.Record, label func(common.Address) string) pb.Event {
	return pb.Event{
		TxID:    rec.TxID,
		Block:   rec.Block,
		Address: rec.Emitter.Hex(),
		Emitter: label(rec.Emitter),
		Name:    rec.Name,
		Args:    pb.ArgsFromMap(rec.Args),
	}
}

// toStatus maps lookup and argument errors onto gRPC codes with an
// ErrorInfo detail carrying a stable reason.
func toStatus(err error) error {
	switch {
	case errors.Is(err, deploy.ErrUnknownAction):
		return rpcError(codes.NotFound, "UNKNOWN_ACTION", err)
	case errors.Is(err, deploy.ErrUnknownMethod):
		return rpcError(codes.NotFound, "UNKNOWN_METHOD", err)
	case errors.Is(err, deploy.ErrBadArgument):
		return rpcError(codes.InvalidArgument, "BAD_ARGUMENT", err)
	case errors.Is(err, ratelimit.ErrExceeded):
		return rpcError(codes.ResourceExhausted, "RATE_LIMITED", err)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func rpcError(code codes.Code, reason string, err error) error {
	st := status.New(code, err.Error())
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorReason returns the ErrorInfo reason attached to an RPC error.
func ErrorReason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		log.Debug("RPC failed", "method", info.FullMethod, "code", status.Code(err), "err", err)
	} else {
		log.Trace("RPC served", "method", info.FullMethod)
	}
	return resp, err
}
