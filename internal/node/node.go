// Package node holds the live deployment served by the daemon and the
// sinks every receipt flows into: the audit log, the event store and the
// alert webhooks.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/alert"
	"github.com/ppiankov/vaultguard/internal/audit"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/deploy"
	"github.com/ppiankov/vaultguard/internal/eventstore"
	"github.com/ppiankov/vaultguard/internal/ratelimit"
)

// MemoryStore keeps the event index in memory for the node's lifetime.
const MemoryStore = ":memory:"

// Options configures a Node.
type Options struct {
	// DeploymentPath is the deployment file. Empty uses the default path.
	DeploymentPath string
	// AuditLog is the JSONL audit log path. Empty disables auditing.
	AuditLog string
	// EventStore is the SQLite event index path. Empty keeps it in memory.
	EventStore string
	// Clock drives block timestamps. Nil uses wall time.
	Clock chain.Clock
}

// Call is one action invocation.
type Call struct {
	Action string
	Method string
	Sender string
	Args   []string
	Fees   deploy.Fees
}

// Node owns the current deployment. Reload swaps in a freshly built one.
type Node struct {
	opts  Options
	audit *audit.Log
	store *eventstore.Store

	mu         sync.RWMutex
	dep        *deploy.Deployment
	configHash string
	limits     ratelimit.Config
	tracker    *ratelimit.Tracker
}

// New loads the deployment and opens the configured sinks.
func New(opts Options) (*Node, error) {
	n := &Node{opts: opts}

	storePath := opts.EventStore
	if storePath == "" {
		storePath = MemoryStore
	}
	store, err := eventstore.Open(storePath)
	if err != nil {
		return nil, err
	}
	n.store = store

	if opts.AuditLog != "" {
		if n.audit, err = audit.Open(opts.AuditLog); err != nil {
			store.Close()
			return nil, err
		}
	}

	if err := n.Reload(); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Reload rebuilds the deployment from its file. On error the current
// deployment keeps serving. The new deployment starts from genesis.
func (n *Node) Reload() error {
	cfg, hash, err := deploy.LoadConfigWithHash(n.opts.DeploymentPath)
	if err != nil {
		return err
	}
	return n.Apply(cfg, hash)
}

// Apply builds cfg and makes it the served deployment.
func (n *Node) Apply(cfg *deploy.Config, hash string) error {
	clock := n.opts.Clock
	if clock == nil {
		clock = chain.Real()
	}
	dep, err := deploy.New(cfg, clock)
	if err != nil {
		return fmt.Errorf("build deployment: %w", err)
	}

	// Observers are bound to this deployment so in-flight receipts of the
	// previous one keep their own labels and hash.
	label := dep.Label
	configHash := func() string { return hash }
	dep.Env.Subscribe(n.store.Observer())
	if n.audit != nil {
		dep.Env.Subscribe(n.audit.Observer(label, configHash))
	}
	if d := alert.NewDispatcher(cfg.Alerts); d != nil {
		dep.Env.Subscribe(d.Observer(label, configHash))
	}

	n.mu.Lock()
	prev := n.configHash
	n.dep = dep
	n.configHash = hash
	n.limits = cfg.RateLimits
	n.tracker = ratelimit.NewTracker()
	n.mu.Unlock()

	if prev != "" && prev != hash {
		log.Info("Deployment reloaded", "hash", hash, "previous", prev, "actions", len(dep.Actions()))
	}
	return nil
}

func (n *Node) current() (*deploy.Deployment, string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dep, n.configHash
}

// Deployment returns the served deployment.
func (n *Node) Deployment() *deploy.Deployment {
	dep, _ := n.current()
	return dep
}

// ConfigHash returns the hash of the served deployment file.
func (n *Node) ConfigHash() string {
	_, hash := n.current()
	return hash
}

// Execute sends c as a transaction. A revert is reported in the receipt;
// the error covers lookups, arguments and rate limits that prevented
// execution.
func (n *Node) Execute(ctx context.Context, c Call) (*chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.RLock()
	dep, limits, tracker := n.dep, n.limits, n.tracker
	n.mu.RUnlock()

	a, err := dep.Action(c.Action)
	if err != nil {
		return nil, err
	}
	tx, err := dep.NewTx(c.Sender, c.Fees)
	if err != nil {
		return nil, err
	}
	if len(limits) > 0 {
		sender := dep.Label(tx.From)
		if res, hit := tracker.Evaluate(limits, sender, a.Name(), dep.Env.Clock().Now()); hit {
			log.Warn("Call rate limited", "sender", sender, "action", a.Name(), "id", res.ID)
			return nil, res.Err()
		}
	}
	return dep.Invoke(tx, c.Action, c.Method, c.Args)
}

// Inspect returns the named action's configuration.
func (n *Node) Inspect(name string) (action.Info, error) {
	return n.Deployment().Inspect(name)
}

// ActionSummary lists one action and its methods.
type ActionSummary struct {
	Name    string              `json:"name"`
	Kind    string              `json:"kind"`
	Address common.Address      `json:"address"`
	Paused  bool                `json:"paused"`
	Methods []deploy.MethodInfo `json:"methods"`
}

// Actions lists every deployed action in deployment order.
func (n *Node) Actions() ([]ActionSummary, error) {
	dep := n.Deployment()
	var out []ActionSummary
	for _, a := range dep.Actions() {
		info, err := dep.Inspect(a.Name())
		if err != nil {
			return nil, err
		}
		methods, err := dep.Methods(a.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, ActionSummary{
			Name:    a.Name(),
			Kind:    string(a.Kind()),
			Address: a.Address(),
			Paused:  info.Paused,
			Methods: methods,
		})
	}
	return out, nil
}

// EventQuery filters indexed events. Emitter is a name or an address.
type EventQuery struct {
	Emitter   string
	Name      string
	FromBlock uint64
	ToBlock   uint64
	Limit     int
}

// Events returns the indexed events matching q in chain order.
func (n *Node) Events(ctx context.Context, q EventQuery) ([]eventstore.Record, error) {
	f := eventstore.Filter{Name: q.Name, FromBlock: q.FromBlock, ToBlock: q.ToBlock, Limit: q.Limit}
	if q.Emitter != "" {
		addr, err := n.Deployment().Resolve(q.Emitter)
		if err != nil {
			return nil, fmt.Errorf("%w: emitter: %w", deploy.ErrBadArgument, err)
		}
		f.Emitter = addr
	}
	return n.store.Events(ctx, f)
}

// Stats summarizes indexed receipts sent to target, a name or address.
// Empty target covers every receipt.
func (n *Node) Stats(ctx context.Context, target string) (eventstore.Stats, error) {
	addr, err := n.Deployment().Resolve(target)
	if err != nil {
		return eventstore.Stats{}, fmt.Errorf("%w: target: %w", deploy.ErrBadArgument, err)
	}
	return n.store.Stats(ctx, addr)
}

// Close closes the audit log and the event store.
func (n *Node) Close() error {
	var errs []error
	if n.audit != nil {
		errs = append(errs, n.audit.Close())
	}
	if n.store != nil {
		errs = append(errs, n.store.Close())
	}
	return errors.Join(errs...)
}
