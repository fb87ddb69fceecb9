package threadpool

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"

	"github.com/vnykmshr/goasync/pkg/common/validation"
)

// Priority is the scheduling priority applied to every worker thread.
// The zero value is PriorityNormal.
type Priority int

// Priorities, ordered from lowest to highest.
const (
	PriorityLowest      Priority = -2
	PriorityBelowNormal Priority = -1
	PriorityNormal      Priority = 0
	PriorityAboveNormal Priority = 1
	PriorityHighest     Priority = 2
)

func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityBelowNormal:
		return "below-normal"
	case PriorityNormal:
		return "normal"
	case PriorityAboveNormal:
		return "above-normal"
	case PriorityHighest:
		return "highest"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// nice maps the priority onto a Linux nice value. Raising priority above
// normal needs CAP_SYS_NICE.
func (p Priority) nice() int {
	switch {
	case p <= PriorityLowest:
		return 10
	case p == PriorityBelowNormal:
		return 5
	case p == PriorityNormal:
		return 0
	case p == PriorityAboveNormal:
		return -5
	default:
		return -10
	}
}

// ParsePriority parses a priority name. Dashes, underscores and case are
// ignored, so "AboveNormal", "above-normal" and "above_normal" are equal.
func ParsePriority(s string) (Priority, error) {
	switch normalize(s) {
	case "lowest":
		return PriorityLowest, nil
	case "belownormal":
		return PriorityBelowNormal, nil
	case "", "normal":
		return PriorityNormal, nil
	case "abovenormal":
		return PriorityAboveNormal, nil
	case "highest":
		return PriorityHighest, nil
	}
	return PriorityNormal, validation.ValidateOneOf("threadpool", "priority", s,
		"lowest", "below-normal", "normal", "above-normal", "highest")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ShutdownPolicy decides what happens to queued tasks when the pool closes.
// The zero value is ShutdownDrain.
type ShutdownPolicy int

const (
	// ShutdownDrain executes every task queued before shutdown.
	ShutdownDrain ShutdownPolicy = iota

	// ShutdownAbandon drops queued tasks. Tasks implementing Abandoner are
	// told with errors.ErrDisposed.
	ShutdownAbandon
)

func (s ShutdownPolicy) String() string {
	switch s {
	case ShutdownDrain:
		return "drain"
	case ShutdownAbandon:
		return "abandon"
	default:
		return fmt.Sprintf("policy(%d)", int(s))
	}
}

// ParseShutdownPolicy parses "drain" or "abandon".
func ParseShutdownPolicy(s string) (ShutdownPolicy, error) {
	switch normalize(s) {
	case "", "drain":
		return ShutdownDrain, nil
	case "abandon":
		return ShutdownAbandon, nil
	}
	return ShutdownDrain, validation.ValidateOneOf("threadpool", "shutdown_policy", s, "drain", "abandon")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ShutdownPolicy) UnmarshalText(text []byte) error {
	v, err := ParseShutdownPolicy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// Config holds configuration options for creating a pool.
type Config struct {
	// Prefix names the worker threads "<Prefix>-<index>". Must not be empty.
	Prefix string `default:"goasync" mapstructure:"prefix"`

	// Priority is applied to every worker thread.
	Priority Priority `mapstructure:"priority"`

	// Threads is the number of workers. Nil means one per CPU.
	// A non-nil value must be positive.
	Threads *int `mapstructure:"threads"`

	// ShutdownPolicy decides the fate of queued tasks on Dispose.
	ShutdownPolicy ShutdownPolicy `mapstructure:"shutdown_policy"`

	// Hooks run under a recover: a panicking hook is logged at Error and
	// does not affect the worker.

	// OnWorkerStart is called on the worker's thread once it is running.
	OnWorkerStart func(worker WorkerInfo) `mapstructure:"-"`

	// OnWorkerStop is called on the worker's thread as it exits.
	OnWorkerStop func(worker WorkerInfo) `mapstructure:"-"`

	// OnEnqueue is called after a task has been accepted by Enqueue.
	OnEnqueue func(task Task) `mapstructure:"-"`

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(worker WorkerInfo, task Task) `mapstructure:"-"`

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(worker WorkerInfo, result Result) `mapstructure:"-"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// Only reachable through a malformed struct tag.
		panic(err)
	}
	return c
}

// WithThreads returns a copy of c using n threads.
func (c Config) WithThreads(n int) Config {
	c.Threads = &n
	return c
}

// resolve validates c and returns the effective thread count.
func (c Config) resolve() (int, error) {
	if err := validation.ValidateNotEmpty("threadpool", "prefix", c.Prefix); err != nil {
		return 0, err
	}
	if err := validation.ValidateRange("threadpool", "priority", int(c.Priority),
		int(PriorityLowest), int(PriorityHighest)); err != nil {
		return 0, err
	}
	if err := validation.ValidateRange("threadpool", "shutdown_policy", int(c.ShutdownPolicy),
		int(ShutdownDrain), int(ShutdownAbandon)); err != nil {
		return 0, err
	}
	if c.Threads == nil {
		return DefaultThreads(), nil
	}
	if err := validation.ValidatePositive("threadpool", "threads", *c.Threads); err != nil {
		return 0, err
	}
	return *c.Threads, nil
}
