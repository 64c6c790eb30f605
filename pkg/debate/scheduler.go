// Package debate implements the round-based message-passing core: it turns a
// directed graph of LLM-backed participants plus a round count into a
// deterministic sequence of prompts, parses the structured envelope out of
// each reply, and streams fully-formed events to a consumer.
package debate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/debatelab/debategraph/pkg/config"
	"github.com/debatelab/debategraph/pkg/llms"
)

// Scheduler runs one debate over a configured graph. Nodes are processed
// strictly sequentially, in declaration order; information flows only from
// one round to the next, never within a round.
type Scheduler struct {
	cfg     *config.DebateConfig
	factory llms.Factory
	model   string
	llmHost string
}

// NewScheduler creates a scheduler for the given debate config. model is the
// chat model used for every participant and the aggregator; llmHost
// optionally overrides the chat-completions endpoint.
func NewScheduler(cfg *config.DebateConfig, factory llms.Factory, model, llmHost string) *Scheduler {
	if model == "" {
		model = config.DefaultModel
	}
	return &Scheduler{cfg: cfg, factory: factory, model: model, llmHost: llmHost}
}

// Run executes the debate, sending events to out as they are produced. It
// does not close out. Any backend failure aborts the remaining schedule and
// is returned after every provider client has been released; ctx
// cancellation stops scheduling before the next node, never mid-call.
func (s *Scheduler) Run(ctx context.Context, out chan<- Event) (err error) {
	nodes := s.cfg.Nodes
	rounds := s.cfg.RoundCount()
	question := s.cfg.Topic()

	if len(nodes) == 0 {
		return fmt.Errorf("no agents configured")
	}

	tracer := otel.Tracer("debategraph/debate")
	ctx, span := tracer.Start(ctx, "debate.run",
		trace.WithAttributes(
			attribute.Int("debate.agents", len(nodes)),
			attribute.Int("debate.rounds", rounds),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	slog.Info("starting debate", "agents", len(nodes), "rounds", rounds)

	providers := make(map[string]llms.Provider, len(nodes))
	closeAll := func() {
		for nodeID, provider := range providers {
			if cerr := provider.Close(); cerr != nil {
				slog.Debug("failed to close provider", "node", nodeID, "error", cerr)
			}
		}
	}
	defer closeAll()

	for _, node := range nodes {
		provider, perr := s.factory.NewProvider(&config.LLMProviderConfig{
			Model:       s.model,
			APIKey:      s.cfg.APIKey,
			Host:        s.llmHost,
			Temperature: node.Temperature.Or(config.DefaultTemperature),
		})
		if perr != nil {
			return fmt.Errorf("failed to create client for agent %s: %w", node.ID, perr)
		}
		providers[node.ID] = provider
	}
	aggregator, err := s.factory.NewProvider(&config.LLMProviderConfig{
		Model:       s.model,
		APIKey:      s.cfg.APIKey,
		Host:        s.llmHost,
		Temperature: config.DefaultTemperature,
	})
	if err != nil {
		return fmt.Errorf("failed to create aggregator client: %w", err)
	}
	defer func() {
		if cerr := aggregator.Close(); cerr != nil {
			slog.Debug("failed to close aggregator client", "error", cerr)
		}
	}()

	topo := BuildTopology(nodes, s.cfg.Edges)
	labels := make(map[string]string, len(nodes))
	for _, node := range nodes {
		labels[node.ID] = node.Label
	}

	histories := make(map[string][]llms.Message, len(nodes))
	for _, node := range nodes {
		prompt := BuildSystemPrompt(strings.TrimSpace(node.SystemPrompt), topo.Outgoing[node.ID], labels, 1)
		histories[node.ID] = []llms.Message{{Role: llms.RoleSystem, Content: prompt}}
	}

	responses := NewResponseTable()

	emit := func(ev Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for round := 1; round <= rounds; round++ {
		responses.StartRound(round)
		for _, node := range nodes {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}

			nodeID := node.ID
			history := histories[nodeID]

			// The system message is always first and is rewritten, not
			// appended, so round-specific instructions replace the old ones.
			systemPrompt := BuildSystemPrompt(strings.TrimSpace(node.SystemPrompt), topo.Outgoing[nodeID], labels, round)
			history[0] = llms.Message{Role: llms.RoleSystem, Content: systemPrompt}

			var prompt string
			if round == 1 {
				prompt = BuildInitialPrompt(question)
			} else {
				var neighborResponses []string
				for _, neighborID := range topo.Incoming[nodeID] {
					if prevText, ok := responses.MainText(round-1, neighborID); ok && prevText != "" {
						neighborResponses = append(neighborResponses, labelFor(labels, neighborID)+": "+prevText)
					}
				}
				prompt = BuildFollowupPrompt(question, neighborResponses)
			}

			history = append(history, llms.Message{Role: llms.RoleUser, Content: prompt})

			slog.Debug("invoking agent", "node", nodeID, "round", round, "history", len(history))
			content, _, gerr := providers[nodeID].Generate(ctx, history)
			if gerr != nil {
				return fmt.Errorf("agent %s failed in round %d: %w", labelFor(labels, nodeID), round, gerr)
			}

			history = append(history, llms.Message{Role: llms.RoleAssistant, Content: content, Name: labelFor(labels, nodeID)})
			histories[nodeID] = history

			recipients := topo.Outgoing[nodeID]
			mainText, position, comments := ParseSummary(content, recipients, labels, round)
			responses.Record(round, nodeID, mainText)

			if eerr := emit(NewPositionEvent(nodeID, position, round)); eerr != nil {
				return eerr
			}

			if len(recipients) == 0 {
				if eerr := emit(NewMessageEvent(nodeID, RecipientNone, mainText, "", round)); eerr != nil {
					return eerr
				}
				continue
			}
			for _, toID := range recipients {
				if eerr := emit(NewMessageEvent(nodeID, toID, mainText, comments[toID], round)); eerr != nil {
					return eerr
				}
			}
		}
	}

	if !responses.Empty() {
		aggregatorPrompt := BuildAggregatorPrompt(question, responses, labels)
		messages := []llms.Message{
			{Role: llms.RoleSystem, Content: AggregatorSystemPrompt},
			{Role: llms.RoleUser, Content: aggregatorPrompt},
		}
		reply, _, aerr := aggregator.Generate(ctx, messages)
		if aerr != nil {
			return fmt.Errorf("aggregator failed: %w", aerr)
		}
		if eerr := emit(NewMessageEvent(SenderAggregator, RecipientAll, "", reply, rounds)); eerr != nil {
			return eerr
		}
	}

	slog.Info("debate completed", "rounds", rounds)
	return nil
}
