package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/deploy"
	"github.com/ppiankov/vaultguard/internal/node"
	"github.com/ppiankov/vaultguard/internal/ratelimit"
)

// --- Input/Output types ---

// ExecuteInput defines parameters for the vaultguard_execute tool.
type ExecuteInput struct {
	Action      string   `json:"action" jsonschema:"action name as listed by vaultguard_actions"`
	Method      string   `json:"method" jsonschema:"method name, e.g. call or setTimeLockDelay"`
	Sender      string   `json:"sender,omitempty" jsonschema:"sender account name or address, defaults to the deployer"`
	Args        []string `json:"args,omitempty" jsonschema:"method arguments in usage order; amounts take wei/gwei/ether units"`
	GasPrice    string   `json:"gas_price,omitempty" jsonschema:"legacy gas price, e.g. 20 gwei"`
	MaxFee      string   `json:"max_fee,omitempty" jsonschema:"EIP-1559 max fee per gas; makes the transaction dynamic"`
	PriorityFee string   `json:"priority_fee,omitempty" jsonschema:"EIP-1559 max priority fee per gas"`
}

// ExecuteOutput contains the receipt of the call or why it did not run.
type ExecuteOutput struct {
	TxID     string       `json:"tx_id,omitempty"`
	Block    uint64       `json:"block,omitempty"`
	Status   string       `json:"status"`
	Reverted bool         `json:"reverted,omitempty"`
	Code     string       `json:"code,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	GasUsed  uint64       `json:"gas_used,omitempty"`
	Events   []EventEntry `json:"events,omitempty"`
}

// EventEntry is one emitted event.
type EventEntry struct {
	Block   uint64            `json:"block,omitempty"`
	Emitter string            `json:"emitter"`
	Name    string            `json:"name"`
	Args    map[string]string `json:"args,omitempty"`
}

// ActionsInput is empty, no parameters needed.
type ActionsInput struct{}

// ActionsOutput lists every deployed action.
type ActionsOutput struct {
	ConfigHash string        `json:"config_hash"`
	Actions    []ActionEntry `json:"actions"`
}

// ActionEntry describes one action and its methods.
type ActionEntry struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Address string   `json:"address"`
	Paused  bool     `json:"paused"`
	Methods []string `json:"methods" jsonschema:"method usages, e.g. call(token, amount)"`
}

// InspectInput defines parameters for the vaultguard_inspect tool.
type InspectInput struct {
	Action string `json:"action" jsonschema:"action name"`
}

// InspectOutput wraps the action configuration. Info is the JSON form of
// the action's settings so the schema stays open.
type InspectOutput struct {
	Info map[string]any `json:"info"`
}

// EventsInput defines parameters for the vaultguard_events tool.
type EventsInput struct {
	Emitter   string `json:"emitter,omitempty" jsonschema:"emitting action, vault or address"`
	Name      string `json:"name,omitempty" jsonschema:"event name, e.g. Executed"`
	FromBlock uint64 `json:"from_block,omitempty" jsonschema:"first block, inclusive"`
	ToBlock   uint64 `json:"to_block,omitempty" jsonschema:"last block, inclusive"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of events"`
}

// EventsOutput lists matching events in chain order.
type EventsOutput struct {
	Events []EventEntry `json:"events"`
}

// StatsInput defines parameters for the vaultguard_stats tool.
type StatsInput struct {
	Action string `json:"action,omitempty" jsonschema:"action name, omit for all calls"`
}

// StatsOutput summarizes executed calls.
type StatsOutput struct {
	Calls    int            `json:"calls"`
	GasUsed  uint64         `json:"gas_used"`
	ByStatus map[string]int `json:"by_status"`
}

// --- Handlers ---

func (s *Server) handleExecute(ctx context.Context, req *mcpsdk.CallToolRequest, input ExecuteInput) (*mcpsdk.CallToolResult, ExecuteOutput, error) {
	r, err := s.node.Execute(ctx, node.Call{
		Action: input.Action,
		Method: input.Method,
		Sender: input.Sender,
		Args:   input.Args,
		Fees:   deploy.Fees{GasPrice: input.GasPrice, MaxFee: input.MaxFee, PriorityFee: input.PriorityFee},
	})
	if err != nil {
		if isCallerError(err) {
			return &mcpsdk.CallToolResult{IsError: true}, ExecuteOutput{Status: "error", Reason: err.Error()}, nil
		}
		return nil, ExecuteOutput{}, err
	}

	label := s.node.Deployment().Label
	out := ExecuteOutput{
		TxID:    r.ID,
		Block:   r.Block,
		Status:  string(r.Status),
		Code:    r.Code,
		GasUsed: r.GasUsed,
	}
	for _, ev := range r.Events {
		out.Events = append(out.Events, EventEntry{Block: r.Block, Emitter: label(ev.Address), Name: ev.Name, Args: ev.Fields()})
	}
	if !r.Succeeded() {
		out.Reverted = true
		if r.Err != nil {
			out.Reason = r.Err.Error()
		}
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleActions(ctx context.Context, req *mcpsdk.CallToolRequest, input ActionsInput) (*mcpsdk.CallToolResult, ActionsOutput, error) {
	actions, err := s.node.Actions()
	if err != nil {
		return nil, ActionsOutput{}, err
	}
	out := ActionsOutput{ConfigHash: s.node.ConfigHash(), Actions: make([]ActionEntry, 0, len(actions))}
	for _, a := range actions {
		e := ActionEntry{Name: a.Name, Kind: a.Kind, Address: a.Address.Hex(), Paused: a.Paused}
		for _, m := range a.Methods {
			e.Methods = append(e.Methods, m.Usage)
		}
		out.Actions = append(out.Actions, e)
	}
	return nil, out, nil
}

func (s *Server) handleInspect(ctx context.Context, req *mcpsdk.CallToolRequest, input InspectInput) (*mcpsdk.CallToolResult, InspectOutput, error) {
	info, err := s.node.Inspect(input.Action)
	if err != nil {
		return nil, InspectOutput{}, err
	}
	fields, err := toFields(info)
	if err != nil {
		return nil, InspectOutput{}, err
	}
	return nil, InspectOutput{Info: fields}, nil
}

func (s *Server) handleEvents(ctx context.Context, req *mcpsdk.CallToolRequest, input EventsInput) (*mcpsdk.CallToolResult, EventsOutput, error) {
	records, err := s.node.Events(ctx, node.EventQuery{
		Emitter:   input.Emitter,
		Name:      input.Name,
		FromBlock: input.FromBlock,
		ToBlock:   input.ToBlock,
		Limit:     input.Limit,
	})
	if err != nil {
		return nil, EventsOutput{}, err
	}
	label := s.node.Deployment().Label
	out := EventsOutput{Events: make([]EventEntry, 0, len(records))}
	for _, rec := range records {
		out.Events = append(out.Events, EventEntry{Block: rec.Block, Emitter: label(rec.Emitter), Name: rec.Name, Args: rec.Args})
	}
	return nil, out, nil
}

func (s *Server) handleStats(ctx context.Context, req *mcpsdk.CallToolRequest, input StatsInput) (*mcpsdk.CallToolResult, StatsOutput, error) {
	st, err := s.node.Stats(ctx, input.Action)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{Calls: st.Receipts, GasUsed: st.GasUsed, ByStatus: st.ByStatus}, nil
}

func toFields(info action.Info) (map[string]any, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", info.Name, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", info.Name, err)
	}
	return out, nil
}

func isCallerError(err error) bool {
	return errors.Is(err, deploy.ErrUnknownAction) ||
		errors.Is(err, deploy.ErrUnknownMethod) ||
		errors.Is(err, deploy.ErrBadArgument) ||
		errors.Is(err, ratelimit.ErrExceeded)
}
