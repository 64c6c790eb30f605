package debate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatelab/debategraph/pkg/config"
	"github.com/debatelab/debategraph/pkg/llms"
)

// fakeProvider replays scripted replies and records every conversation it was
// handed, so tests can assert on prompt construction and history growth.
type fakeProvider struct {
	replies []string
	failAt  int // 1-based call index that errors; 0 = never
	calls   [][]llms.Message
	closed  bool
}

func (p *fakeProvider) Generate(ctx context.Context, messages []llms.Message) (string, int, error) {
	snapshot := make([]llms.Message, len(messages))
	copy(snapshot, messages)
	p.calls = append(p.calls, snapshot)

	n := len(p.calls)
	if p.failAt != 0 && n == p.failAt {
		return "", 0, fmt.Errorf("backend unavailable")
	}
	reply := "default reply"
	if len(p.replies) > 0 {
		idx := n - 1
		if idx >= len(p.replies) {
			idx = len(p.replies) - 1
		}
		reply = p.replies[idx]
	}
	return reply, 10, nil
}

func (p *fakeProvider) ModelName() string { return "fake-model" }
func (p *fakeProvider) Close() error      { p.closed = true; return nil }

// fakeFactory hands out providers in creation order: one per node in
// declaration order, then the aggregator. It records the config each provider
// was built with.
type fakeFactory struct {
	providers []*fakeProvider
	cfgs      []*config.LLMProviderConfig
	next      int
}

func (f *fakeFactory) NewProvider(cfg *config.LLMProviderConfig) (llms.Provider, error) {
	if f.next >= len(f.providers) {
		return nil, fmt.Errorf("unexpected provider request")
	}
	f.cfgs = append(f.cfgs, cfg)
	p := f.providers[f.next]
	f.next++
	return p, nil
}

func runDebate(t *testing.T, cfg *config.DebateConfig, factory llms.Factory) ([]Event, error) {
	t.Helper()
	sched := NewScheduler(cfg, factory, "", "")
	out := make(chan Event, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- sched.Run(context.Background(), out)
		close(out)
	}()
	var events []Event
	for ev := range out {
		events = append(events, ev)
	}
	return events, <-errCh
}

func debateConfig(rounds int) *config.DebateConfig {
	r := rounds
	return &config.DebateConfig{
		Nodes: []config.NodeConfig{
			{ID: "a", Label: "Optimist"},
			{ID: "b", Label: "Skeptic"},
		},
		Edges: []config.EdgeConfig{
			{From: "a", To: "b", Direction: config.DirectionBidirectional},
		},
		Rounds: &r,
		APIKey: "test-key",
	}
}

func TestSchedulerRejectsEmptyGraph(t *testing.T) {
	cfg := &config.DebateConfig{APIKey: "k"}
	events, err := runDebate(t, cfg, &fakeFactory{})

	assert.Error(t, err)
	assert.Empty(t, events)
}

func TestSchedulerFullDebate(t *testing.T) {
	provA := &fakeProvider{replies: []string{
		"A main one.\nSUMMARY_JSON:\n{\"position\": \"A pos 1\"}",
		"A main two.\nSUMMARY_JSON:\n{\"position\": \"A pos 2\", \"comments\": {\"Skeptic\": \"fair point\"}}",
	}}
	provB := &fakeProvider{replies: []string{
		"B main one.\nSUMMARY_JSON:\n{\"position\": \"B pos 1\"}",
		"B main two.\nSUMMARY_JSON:\n{\"position\": \"B pos 2\", \"comments\": {\"Optimist\": \"still unconvinced\"}}",
	}}
	agg := &fakeProvider{replies: []string{"final summary"}}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	events, err := runDebate(t, debateConfig(2), factory)
	require.NoError(t, err)

	// Per round, per node: one position then one message per recipient, plus
	// the aggregator message at the end.
	require.Len(t, events, 9)

	pos1 := events[0].(PositionEvent)
	assert.Equal(t, "position", pos1.Type)
	assert.Equal(t, "a", pos1.From)
	assert.Equal(t, "A pos 1", pos1.Position)
	assert.Equal(t, 1, pos1.Round)

	msg1 := events[1].(MessageEvent)
	assert.Equal(t, "message", msg1.Type)
	assert.Equal(t, "a", msg1.From)
	assert.Equal(t, "b", msg1.To)
	assert.Equal(t, "A main one.", msg1.Text)
	assert.Equal(t, "", msg1.Summary)

	msg2 := events[5].(MessageEvent)
	assert.Equal(t, "a", msg2.From)
	assert.Equal(t, "fair point", msg2.Summary)
	assert.Equal(t, 2, msg2.Round)

	final := events[8].(MessageEvent)
	assert.Equal(t, SenderAggregator, final.From)
	assert.Equal(t, RecipientAll, final.To)
	assert.Equal(t, "", final.Text)
	assert.Equal(t, "final summary", final.Summary)
	assert.Equal(t, 2, final.Round)
}

func TestSchedulerHistoryGrowsAcrossRounds(t *testing.T) {
	provA := &fakeProvider{replies: []string{
		"A main one.\nSUMMARY_JSON:\n{\"position\": \"p\"}",
	}}
	provB := &fakeProvider{}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	_, err := runDebate(t, debateConfig(2), factory)
	require.NoError(t, err)

	require.Len(t, provA.calls, 2)
	assert.Len(t, provA.calls[0], 2)
	assert.Len(t, provA.calls[1], 4)

	// System message is rewritten in place with the round-2 instructions.
	round1System := provA.calls[0][0]
	round2System := provA.calls[1][0]
	assert.Equal(t, llms.RoleSystem, round2System.Role)
	assert.NotEqual(t, round1System.Content, round2System.Content)
	assert.Contains(t, round2System.Content, "comments")

	// Round-2 user turn carries the neighbor's round-1 main text.
	round2User := provA.calls[1][3]
	assert.Equal(t, llms.RoleUser, round2User.Role)
	assert.Contains(t, round2User.Content, "One agent solution: Skeptic: default reply")
}

func TestSchedulerIsolatedNodeMessagesNone(t *testing.T) {
	provA := &fakeProvider{}
	provB := &fakeProvider{}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	rounds := 1
	cfg := &config.DebateConfig{
		Nodes: []config.NodeConfig{
			{ID: "a", Label: "Optimist"},
			{ID: "b", Label: "Skeptic"},
		},
		Rounds: &rounds,
		APIKey: "test-key",
	}

	events, err := runDebate(t, cfg, factory)
	require.NoError(t, err)

	msg := events[1].(MessageEvent)
	assert.Equal(t, "a", msg.From)
	assert.Equal(t, RecipientNone, msg.To)
	assert.Equal(t, "", msg.Summary)
}

func TestSchedulerBackendFailureStopsDebate(t *testing.T) {
	provA := &fakeProvider{}
	provB := &fakeProvider{failAt: 1}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	events, err := runDebate(t, debateConfig(2), factory)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Skeptic")
	assert.Contains(t, err.Error(), "round 1")

	// Node a already produced its round-1 events before the failure.
	assert.Len(t, events, 2)

	// Every client is released, and the aggregator never runs.
	assert.True(t, provA.closed)
	assert.True(t, provB.closed)
	assert.True(t, agg.closed)
	assert.Empty(t, agg.calls)
}

func TestSchedulerContextCancellation(t *testing.T) {
	provA := &fakeProvider{}
	provB := &fakeProvider{}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sched := NewScheduler(debateConfig(2), factory, "", "")
	out := make(chan Event, 64)
	err := sched.Run(ctx, out)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, provA.calls)
	assert.True(t, provA.closed)
}

func TestSchedulerDefaultRounds(t *testing.T) {
	provA := &fakeProvider{}
	provB := &fakeProvider{}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	cfg := debateConfig(1)
	cfg.Rounds = nil

	_, err := runDebate(t, cfg, factory)
	require.NoError(t, err)

	assert.Len(t, provA.calls, config.DefaultRounds)
	assert.Len(t, provB.calls, config.DefaultRounds)
	assert.Len(t, agg.calls, 1)
}

func TestSchedulerChainPropagation(t *testing.T) {
	provA := &fakeProvider{replies: []string{
		"alpha one.\nSUMMARY_JSON:\n{\"position\": \"pa\"}",
		"alpha two.\nSUMMARY_JSON:\n{\"position\": \"pa2\"}",
	}}
	provB := &fakeProvider{replies: []string{
		"bravo one.\nSUMMARY_JSON:\n{\"position\": \"pb\"}",
		"bravo two.\nSUMMARY_JSON:\n{\"position\": \"pb2\"}",
	}}
	provC := &fakeProvider{replies: []string{
		"charlie one.\nSUMMARY_JSON:\n{\"position\": \"pc\"}",
		"charlie two.\nSUMMARY_JSON:\n{\"position\": \"pc2\"}",
	}}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, provC, agg}}

	rounds := 2
	cfg := &config.DebateConfig{
		Nodes: []config.NodeConfig{
			{ID: "a", Label: "Analyst"},
			{ID: "b", Label: "Builder"},
			{ID: "c", Label: "Critic"},
		},
		Edges: []config.EdgeConfig{
			{From: "a", To: "b", Direction: config.DirectionAToB},
			{From: "b", To: "c", Direction: config.DirectionAToB},
		},
		Rounds: &rounds,
		APIKey: "test-key",
	}

	events, err := runDebate(t, cfg, factory)
	require.NoError(t, err)

	// Round-2 prompts follow the edges: a has no inputs, b sees a's round-1
	// text, c sees b's and nothing from a.
	require.Len(t, provA.calls, 2)
	promptA := provA.calls[1][3].Content
	assert.Contains(t, promptA, "There are no solutions from other agents yet.")

	require.Len(t, provB.calls, 2)
	promptB := provB.calls[1][3].Content
	assert.Contains(t, promptB, "One agent solution: Analyst: alpha one.")
	assert.NotContains(t, promptB, "charlie")

	require.Len(t, provC.calls, 2)
	promptC := provC.calls[1][3].Content
	assert.Contains(t, promptC, "One agent solution: Builder: bravo one.")
	assert.NotContains(t, promptC, "alpha")

	// Messages travel only along edge direction; c has no recipients.
	for _, ev := range events {
		msg, ok := ev.(MessageEvent)
		if !ok {
			continue
		}
		switch msg.From {
		case "a":
			assert.Equal(t, "b", msg.To)
		case "b":
			assert.Equal(t, "c", msg.To)
		case "c":
			assert.Equal(t, RecipientNone, msg.To)
		}
	}
}

func TestSchedulerUsesNodeTemperature(t *testing.T) {
	provA := &fakeProvider{}
	provB := &fakeProvider{}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	cfg := debateConfig(1)
	cfg.Nodes[0].Temperature = config.TemperatureOf(0.3)

	_, err := runDebate(t, cfg, factory)
	require.NoError(t, err)

	require.Len(t, factory.cfgs, 3)
	assert.Equal(t, 0.3, factory.cfgs[0].Temperature)
	assert.Equal(t, config.DefaultTemperature, factory.cfgs[1].Temperature)
	assert.Equal(t, config.DefaultTemperature, factory.cfgs[2].Temperature)
}

func TestSchedulerAggregatorSeesAllRounds(t *testing.T) {
	provA := &fakeProvider{replies: []string{
		"A round one.\nSUMMARY_JSON:\n{\"position\": \"p\"}",
		"A round two.\nSUMMARY_JSON:\n{\"position\": \"p\"}",
	}}
	provB := &fakeProvider{}
	agg := &fakeProvider{}
	factory := &fakeFactory{providers: []*fakeProvider{provA, provB, agg}}

	_, err := runDebate(t, debateConfig(2), factory)
	require.NoError(t, err)

	require.Len(t, agg.calls, 1)
	require.Len(t, agg.calls[0], 2)
	assert.Equal(t, AggregatorSystemPrompt, agg.calls[0][0].Content)

	transcript := agg.calls[0][1].Content
	assert.Contains(t, transcript, "Round 1 - Optimist: A round one.")
	assert.Contains(t, transcript, "Round 2 - Optimist: A round two.")
	assert.False(t, strings.Contains(transcript, "SUMMARY_JSON"))
}
