// Package executor drives the agent loop for one chat turn:
//
//	load thread → append user message →
//	call Model Gateway → if tool calls, dispatch them →
//	feed observations back → repeat until a text answer or max turns →
//	persist thread → extract answer.
//
// One Run is synchronous from the caller's perspective; the only
// suspension points are the gateway call and the tool handlers. Runs
// against the same thread id are serialized by a per-thread lock so the
// transcript's alternation structure survives concurrent requests.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/chatcore/chatcore/internal/checkpoint"
	"github.com/chatcore/chatcore/internal/dispatch"
	"github.com/chatcore/chatcore/internal/gateway"
	"github.com/chatcore/chatcore/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("chatcore/executor")

// DefaultMaxTurns is the maximum number of model ⇄ tool round-trips per
// request. The loop has no natural bound: a model that keeps requesting
// tools would otherwise never terminate.
const DefaultMaxTurns = 10

// IncompleteAnswer is returned when the turn budget runs out before the
// model produces a final answer.
const IncompleteAnswer = "I could not complete the answer within the allowed number of steps."

// fallbackAnswer is returned when no assistant content can be extracted
// from the final transcript.
const fallbackAnswer = "Received response, but could not extract final content."

// Options tune the executor loop.
type Options struct {
	SystemPrompt string
	MaxTurns     int
}

// Outcome is the result of one completed turn.
type Outcome struct {
	Text     string
	ThreadID string
	Turns    int
	// Incomplete is set when the turn budget forced termination.
	Incomplete bool
}

// Executor orchestrates the gateway, the dispatcher, and the checkpoint
// store.
type Executor struct {
	store      checkpoint.Store
	gateway    gateway.Gateway
	dispatcher *dispatch.Dispatcher
	catalog    []gateway.ToolSpec
	locks      *checkpoint.KeyedMutex

	systemPrompt string
	maxTurns     int
}

// New creates an executor. The catalog is fixed at construction; the
// registry is immutable after startup.
func New(store checkpoint.Store, gw gateway.Gateway, d *dispatch.Dispatcher, catalog []gateway.ToolSpec, opts Options) *Executor {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Executor{
		store:        store,
		gateway:      gw,
		dispatcher:   d,
		catalog:      catalog,
		locks:        checkpoint.NewKeyedMutex(),
		systemPrompt: opts.SystemPrompt,
		maxTurns:     maxTurns,
	}
}

// Run executes one chat turn. An empty threadID starts a fresh thread
// with a generated id; the id is always echoed in the outcome.
//
// Gateway and storage failures end the turn and propagate to the
// caller; whatever messages accumulated before the fault are still
// persisted (best effort) so the conversation is not silently lost.
func (e *Executor) Run(ctx context.Context, text, threadID string) (*Outcome, error) {
	if threadID == "" {
		threadID = uuid.New().String()
	}

	ctx, span := tracer.Start(ctx, "executor.run")
	defer span.End()
	span.SetAttributes(attribute.String("thread_id", threadID))

	unlock := e.locks.Lock(threadID)
	defer unlock()

	thread, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}
	thread.Append(models.UserMessage(text))

	start := time.Now()
	for turn := 1; turn <= e.maxTurns; turn++ {
		result, err := e.gateway.Complete(ctx, e.systemPrompt, thread.Messages, e.catalog)
		if err != nil {
			// Keep the partial transcript so the thread survives the fault.
			if saveErr := e.store.Save(ctx, thread); saveErr != nil {
				log.Error().Str("thread_id", threadID).Err(saveErr).Msg("Cannot persist partial thread")
			}
			return nil, fmt.Errorf("model gateway call failed (turn %d): %w", turn, err)
		}

		if len(result.ToolCalls) == 0 {
			thread.Append(models.Message{Role: models.RoleAssistant, Content: result.Text})
			if err := e.store.Save(ctx, thread); err != nil {
				return nil, fmt.Errorf("save thread %s: %w", threadID, err)
			}

			log.Info().
				Str("thread_id", threadID).
				Int("turns", turn).
				Dur("duration", time.Since(start)).
				Msg("Turn complete")

			return &Outcome{
				Text:     extractAnswer(thread.Messages),
				ThreadID: threadID,
				Turns:    turn,
			}, nil
		}

		thread.Append(models.Message{
			Role:      models.RoleAssistant,
			Content:   result.Text,
			ToolCalls: result.ToolCalls,
		})
		thread.Append(e.dispatcher.Dispatch(ctx, result.ToolCalls)...)

		log.Debug().
			Str("thread_id", threadID).
			Int("turn", turn).
			Int("tool_calls", len(result.ToolCalls)).
			Msg("Agent loop continuing")
	}

	// Turn budget exhausted: force termination with a flagged answer
	// rather than looping forever.
	thread.Append(models.Message{Role: models.RoleAssistant, Content: IncompleteAnswer})
	if err := e.store.Save(ctx, thread); err != nil {
		return nil, fmt.Errorf("save thread %s: %w", threadID, err)
	}

	log.Warn().
		Str("thread_id", threadID).
		Int("max_turns", e.maxTurns).
		Msg("Turn budget exhausted")

	return &Outcome{
		Text:       IncompleteAnswer,
		ThreadID:   threadID,
		Turns:      e.maxTurns,
		Incomplete: true,
	}, nil
}

// extractAnswer scans backward for the newest assistant message with
// non-empty content. If none exists it falls back to the content of the
// very last message, then to a fixed placeholder.
func extractAnswer(msgs []models.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	if n := len(msgs); n > 0 && msgs[n-1].Content != "" {
		return msgs[n-1].Content
	}
	return fallbackAnswer
}
