// Package vaultguardv1 defines the vaultguard.v1 ActionService wire types
// and its hand-written gRPC service descriptor. Messages are plain structs
// serialized via cramberry struct tags; no code generation is involved.
// The json tags are for CLI and MCP output only.
package vaultguardv1

import "sort"

// ExecuteRequest invokes one method of a deployed action.
type ExecuteRequest struct {
	Action string   `cramberry:"1" json:"action"`
	Method string   `cramberry:"2" json:"method"`
	Sender string   `cramberry:"3" json:"sender,omitempty"`
	Args   []string `cramberry:"4" json:"args,omitempty"`

	GasPrice    string `cramberry:"5" json:"gas_price,omitempty"`
	MaxFee      string `cramberry:"6" json:"max_fee,omitempty"`
	PriorityFee string `cramberry:"7" json:"priority_fee,omitempty"`
}

// ExecuteResponse is the receipt of an executed request. A revert is a
// successful RPC with Success false.
type ExecuteResponse struct {
	TxID              string  `cramberry:"1" json:"tx_id"`
	TxHash            string  `cramberry:"2" json:"tx_hash"`
	Block             uint64  `cramberry:"3" json:"block"`
	Timestamp         string  `cramberry:"4" json:"timestamp"`
	Success           bool    `cramberry:"5" json:"success"`
	Status            string  `cramberry:"6" json:"status"`
	Code              string  `cramberry:"7" json:"code,omitempty"`
	Reason            string  `cramberry:"8" json:"reason,omitempty"`
	GasUsed           uint64  `cramberry:"9" json:"gas_used"`
	EffectiveGasPrice string  `cramberry:"10" json:"effective_gas_price"`
	Events            []Event `cramberry:"11" json:"events,omitempty"`
}

// EventArg is one named field of an event.
type EventArg struct {
	Key   string `cramberry:"1" json:"key"`
	Value string `cramberry:"2" json:"value"`
}

// Event is an emitted log entry. Args are sorted by key.
type Event struct {
	TxID    string     `cramberry:"1" json:"tx_id,omitempty"`
	Block   uint64     `cramberry:"2" json:"block,omitempty"`
	Address string     `cramberry:"3" json:"address"`
	Emitter string     `cramberry:"4" json:"emitter,omitempty"`
	Name    string     `cramberry:"5" json:"name"`
	Args    []EventArg `cramberry:"6" json:"args,omitempty"`
}

// Arg returns the value of the named field.
func (e Event) Arg(key string) (string, bool) {
	for _, a := range e.Args {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// ArgsFromMap converts event fields into key-sorted wire args.
func ArgsFromMap(m map[string]string) []EventArg {
	if len(m) == 0 {
		return nil
	}
	out := make([]EventArg, 0, len(m))
	for k, v := range m {
		out = append(out, EventArg{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// InspectRequest names the action to inspect.
type InspectRequest struct {
	Action string `cramberry:"1" json:"action"`
}

// InspectResponse carries the action's configuration as a JSON document.
type InspectResponse struct {
	Action     string `cramberry:"1" json:"action"`
	ConfigHash string `cramberry:"2" json:"config_hash"`
	Info       []byte `cramberry:"3" json:"info"`
}

// EventsRequest filters stored events. Empty fields match everything.
type EventsRequest struct {
	Emitter   string `cramberry:"1" json:"emitter,omitempty"`
	Name      string `cramberry:"2" json:"name,omitempty"`
	FromBlock uint64 `cramberry:"3" json:"from_block,omitempty"`
	ToBlock   uint64 `cramberry:"4" json:"to_block,omitempty"`
	Limit     uint32 `cramberry:"5" json:"limit,omitempty"`
}

type EventsResponse struct {
	Events []Event `cramberry:"1" json:"events"`
}

// ListActionsRequest is the (empty) request for ListActions.
type ListActionsRequest struct{}

// ActionSummary describes a deployed action and its callable methods.
type ActionSummary struct {
	Name    string   `cramberry:"1" json:"name"`
	Kind    string   `cramberry:"2" json:"kind"`
	Address string   `cramberry:"3" json:"address"`
	Paused  bool     `cramberry:"4" json:"paused"`
	Methods []Method `cramberry:"5" json:"methods"`
}

type Method struct {
	Name     string `cramberry:"1" json:"name"`
	Usage    string `cramberry:"2" json:"usage"`
	Selector string `cramberry:"3" json:"selector"`
}

type ListActionsResponse struct {
	ConfigHash string          `cramberry:"1" json:"config_hash"`
	Actions    []ActionSummary `cramberry:"2" json:"actions"`
}
