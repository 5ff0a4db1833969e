// Package dispatch executes model-requested tool calls against the
// registry and assembles the resulting observations into tool messages.
//
// Dispatch never fails the batch: unknown tools, bad arguments, and
// handler errors all degrade into textual error observations so the
// agent loop always makes progress. Calls within a batch have no
// cross-tool dependencies and run concurrently, but results are
// reassembled in request order before being appended to the thread.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/chatcore/chatcore/internal/tools"
	"github.com/chatcore/chatcore/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("chatcore/dispatch")

// Dispatcher resolves and executes tool calls.
type Dispatcher struct {
	registry *tools.Registry

	// callTimeout bounds each handler invocation; zero means no bound.
	callTimeout time.Duration

	// maxParallel caps concurrent handler invocations per batch.
	maxParallel int
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(reg *tools.Registry, callTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry:    reg,
		callTimeout: callTimeout,
		maxParallel: 4,
	}
}

// Dispatch executes every call and returns one tool message per call,
// in the same order as received.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []models.ToolCall) []models.Message {
	ctx, span := tracer.Start(ctx, "dispatch.tools")
	defer span.End()
	span.SetAttributes(attribute.Int("tool_calls", len(calls)))

	results := make([]models.Message, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxParallel)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = models.ToolMessage(call.ID, d.observe(gctx, call))
			return nil
		})
	}
	// Workers only record observations, never errors.
	_ = g.Wait()

	return results
}

// observe runs one call and returns its observation text.
func (d *Dispatcher) observe(ctx context.Context, call models.ToolCall) string {
	tool, ok := d.registry.Resolve(call.Name)
	if !ok {
		log.Warn().Str("tool", call.Name).Msg("Unknown tool requested")
		return fmt.Sprintf("Tool %q is not available.", call.Name)
	}

	if err := tool.Schema().Validate(call.Arguments); err != nil {
		return fmt.Sprintf("Invalid arguments for tool %q: %v", call.Name, err)
	}

	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	start := time.Now()
	observation, err := tool.Invoke(ctx, call.Arguments)
	if err != nil {
		log.Warn().
			Str("tool", call.Name).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("Tool execution failed")
		return fmt.Sprintf("Error executing tool %q: %v", call.Name, err)
	}

	log.Debug().
		Str("tool", call.Name).
		Dur("duration", time.Since(start)).
		Msg("Tool executed")
	return observation
}
