// Package core executes task specs. A spec names a kind ("sleep",
// "checksum", "probe", or anything registered by the caller) and carries
// an opaque payload; the executor resolves the kind through an explicit
// registry owned by the Core instance, never through package-level state.
package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type OutcomeStatus string

const (
	OutcomeStatusSuccess OutcomeStatus = "success"
	OutcomeStatusError   OutcomeStatus = "error"
)

// ErrUnknownKind is returned when a spec names a kind nobody registered.
var ErrUnknownKind = errors.New("unknown task kind")

// TaskSpec describes one task to run: which kind and with what payload.
type TaskSpec struct {
	Kind    string        `json:"kind"`
	Payload string        `json:"payload"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// TaskOutcome is what running a spec produced.
type TaskOutcome struct {
	Status   OutcomeStatus
	Kind     string
	Payload  string
	Output   string
	Duration time.Duration
	Error    string
}

// KindFunc executes one task kind. It must honor ctx cancellation and
// return the task's printable output.
type KindFunc func(ctx context.Context, payload string) (string, error)

type Core struct {
	mu             sync.RWMutex
	kinds          map[string]KindFunc
	defaultTimeout time.Duration
}

type Opts struct {
	DefaultTimeout time.Duration
}

const DefaultTaskTimeout = 10 * time.Second

func New(opts ...Opts) *Core {
	if len(opts) == 0 {
		opts = append(opts, Opts{DefaultTimeout: DefaultTaskTimeout})
	}
	if opts[0].DefaultTimeout <= 0 {
		opts[0].DefaultTimeout = DefaultTaskTimeout
	}

	c := &Core{
		kinds:          make(map[string]KindFunc),
		defaultTimeout: opts[0].DefaultTimeout,
	}
	c.Register("sleep", runSleep)
	c.Register("checksum", runChecksum)
	c.Register("probe", c.runProbe)
	return c
}

// Register adds or replaces a task kind. Kind names are matched
// case-insensitively.
func (c *Core) Register(kind string, fn KindFunc) {
	c.mu.Lock()
	c.kinds[strings.ToLower(kind)] = fn
	c.mu.Unlock()
}

// Kinds lists the registered kind names, sorted.
func (c *Core) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.kinds))
	for name := range c.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one spec synchronously and reports the outcome. A spec
// that fails produces an error outcome, not an error return; the error
// return is reserved for specs that cannot be run at all.
func (c *Core) Run(ctx context.Context, spec TaskSpec) (TaskOutcome, error) {
	c.mu.RLock()
	fn, ok := c.kinds[strings.ToLower(spec.Kind)]
	c.mu.RUnlock()

	if !ok {
		return TaskOutcome{}, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	output, err := fn(runCtx, spec.Payload)
	outcome := TaskOutcome{
		Status:   OutcomeStatusSuccess,
		Kind:     strings.ToLower(spec.Kind),
		Payload:  spec.Payload,
		Output:   output,
		Duration: time.Since(start),
	}
	if err != nil {
		outcome.Status = OutcomeStatusError
		outcome.Error = err.Error()
	}
	return outcome, nil
}
