// Self-healing command queue.
//
// Detected faults do not get fixed at the detection site: the site enqueues
// a corrective command and rendering moves on. Once per frame a single
// designated consumer drains the queue, running the most urgent repairs
// first. Any goroutine may produce into the queue; that is how off-thread
// resource loaders hand their failures back to the render thread.

package resilience

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kestrelui/renderguard/internal/engine"
)

// CommandPriority orders healing commands. Higher values drain first.
type CommandPriority int

const (
	PriorityLow CommandPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns a human-readable priority.
func (p CommandPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Command is one corrective action. Implementations are owned exclusively
// by the queue from enqueue until dequeue, at which point ownership
// transfers to the executor; a command must not be enqueued twice.
//
// The command set is open-ended: integrations define their own repairs
// alongside the stock ones below.
type Command interface {
	// Name identifies the command in logs.
	Name() string

	// Priority ranks the command for drain order.
	Priority() CommandPriority

	// Execute performs the repair. Blocking or retrying inside Execute is
	// the command's own business, not the queue's; there is no
	// cancellation of an in-flight command beyond honoring ctx.
	Execute(ctx context.Context) error
}

// ResetTextureCommand asks the rendering backend to reset one texture.
// The actual reset is backend-specific and supplied as a callback; a nil
// callback makes the command a successful no-op, for backends where
// dropping the handle is enough.
type ResetTextureCommand struct {
	Texture engine.Handle
	Reset   func(ctx context.Context, h engine.Handle) error
}

func (c *ResetTextureCommand) Name() string              { return "reset_texture" }
func (c *ResetTextureCommand) Priority() CommandPriority { return PriorityHigh }

func (c *ResetTextureCommand) Execute(ctx context.Context) error {
	if c.Reset == nil {
		return nil
	}
	return c.Reset(ctx, c.Texture)
}

// RecreateDeviceCommand asks the rendering backend to tear down and
// recreate the graphics device. It is the escalation of last resort and
// always drains first.
type RecreateDeviceCommand struct {
	Recreate func(ctx context.Context) error
}

func (c *RecreateDeviceCommand) Name() string              { return "recreate_device" }
func (c *RecreateDeviceCommand) Priority() CommandPriority { return PriorityCritical }

func (c *RecreateDeviceCommand) Execute(ctx context.Context) error {
	if c.Recreate == nil {
		return nil
	}
	return c.Recreate(ctx)
}

// commandFunc adapts a plain function into a Command.
type commandFunc struct {
	name     string
	priority CommandPriority
	fn       func(ctx context.Context) error
}

// NewCommand wraps a function as a healing command with the given name and
// priority.
func NewCommand(name string, priority CommandPriority, fn func(ctx context.Context) error) Command {
	return &commandFunc{name: name, priority: priority, fn: fn}
}

func (c *commandFunc) Name() string              { return c.name }
func (c *commandFunc) Priority() CommandPriority { return c.priority }

func (c *commandFunc) Execute(ctx context.Context) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx)
}

// Queue is the priority-ordered healing command queue: safe concurrent
// producers, one designated consumer. The backing slice is kept sorted by
// descending priority with FIFO ordering among equal priorities.
type Queue struct {
	mu       sync.Mutex
	commands []Command

	metrics *Metrics
	logger  *slog.Logger
}

// NewQueue creates an empty healing queue reporting outcomes into the
// given metrics. A nil logger falls back to slog.Default.
func NewQueue(metrics *Metrics, logger *slog.Logger) *Queue {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		metrics: metrics,
		logger:  logger,
	}
}

// Enqueue inserts a command, keeping the queue sorted. Nil commands are
// ignored. Any goroutine may enqueue.
func (q *Queue) Enqueue(cmd Command) {
	if cmd == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.commands = append(q.commands, cmd)
	sort.SliceStable(q.commands, func(i, j int) bool {
		return q.commands[i].Priority() > q.commands[j].Priority()
	})
}

// Dequeue removes and returns the highest-priority command, breaking ties
// in favor of the earliest enqueued. An empty queue yields nil.
func (q *Queue) Dequeue() Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return nil
	}

	cmd := q.commands[0]
	q.commands = q.commands[1:]
	return cmd
}

// ExecuteAll drains the queue synchronously at the call site, highest
// priority first, recording each outcome. Failed commands are not retried
// or re-enqueued: a failed recovery is counted and left for a higher-level
// supervisor to escalate, typically by enqueueing a critical replacement
// command. Returns the number of executed and failed commands.
func (q *Queue) ExecuteAll(ctx context.Context) (executed, failed int) {
	for {
		cmd := q.Dequeue()
		if cmd == nil {
			return executed, failed
		}

		start := time.Now()
		err := cmd.Execute(ctx)
		elapsed := time.Since(start).Seconds()

		executed++
		q.metrics.UpdateHealing(err == nil, elapsed)

		if err != nil {
			failed++
			q.logger.Warn("healing command failed",
				"command", cmd.Name(),
				"priority", cmd.Priority().String(),
				"elapsed_sec", elapsed,
				"error", err)
			continue
		}
		q.logger.Debug("healing command succeeded",
			"command", cmd.Name(),
			"priority", cmd.Priority().String(),
			"elapsed_sec", elapsed)
	}
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}
