package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a log entry emitted by a contract during a transaction.
// Args holds alternating key/value pairs.
type Event struct {
	Address common.Address `json:"address"`
	Name    string         `json:"name"`
	Args    []any          `json:"args,omitempty"`
}

// Get returns the value stored under key.
func (e Event) Get(key string) (any, bool) {
	for i := 0; i+1 < len(e.Args); i += 2 {
		if k, ok := e.Args[i].(string); ok && k == key {
			return e.Args[i+1], true
		}
	}
	return nil, false
}

// Fields renders the arguments as a string map for serialization.
func (e Event) Fields() map[string]string {
	out := make(map[string]string, len(e.Args)/2)
	for i := 0; i+1 < len(e.Args); i += 2 {
		k, ok := e.Args[i].(string)
		if !ok {
			continue
		}
		out[k] = formatValue(e.Args[i+1])
	}
	return out
}

func (e Event) String() string {
	parts := make([]string, 0, len(e.Args)/2)
	for i := 0; i+1 < len(e.Args); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%s", e.Args[i], formatValue(e.Args[i+1])))
	}
	return fmt.Sprintf("%s(%s)@%s", e.Name, strings.Join(parts, ", "), e.Address.Hex())
}

func formatValue(v any) string {
	switch x := v.(type) {
	case common.Address:
		return x.Hex()
	case common.Hash:
		return x.Hex()
	case []common.Address:
		s := make([]string, len(x))
		for i, a := range x {
			s[i] = a.Hex()
		}
		return strings.Join(s, ",")
	case [32]byte:
		return common.Hash(x).Hex()
	case []byte:
		return common.Bytes2Hex(x)
	default:
		return fmt.Sprint(v)
	}
}
