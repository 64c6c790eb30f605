package debate

import (
	"fmt"
	"strings"
)

// DefaultSystemBase opens every system prompt that has no custom fragment.
const DefaultSystemBase = "You are a participant in a multi-agent debate."

// AggregatorSystemPrompt is the fixed system role for the final pass.
const AggregatorSystemPrompt = `You are the aggregator for a multi-agent debate.
Summarize all agent responses across all rounds into a concise final summary (3-5 sentences).
Focus on key points and disagreements without adding new arguments.
`

// SummaryMarker is the literal line that separates a reply's free text from
// its structured envelope.
const SummaryMarker = "SUMMARY_JSON:"

const positionInstructions = `

After your full response, output your position/conclusion in JSON format:

SUMMARY_JSON:
{"position": "Your brief conclusion in 3-8 words"}

Example:
SUMMARY_JSON:
{"position": "AI is beneficial for humanity"}
`

// BuildSystemPrompt builds the round-aware system prompt for one node.
//
// Round 1 always requests a position-only envelope. Later rounds request
// position plus one comment per outgoing neighbor, keyed by neighbor display
// label; a node with no outgoing neighbors gets no structured-output
// instruction at all.
func BuildSystemPrompt(customPrompt string, outgoingNeighbors []string, labels map[string]string, round int) string {
	base := customPrompt
	if base == "" {
		base = DefaultSystemBase
	}
	base += "\n\nKeep your response concise."

	if round == 1 {
		return base + positionInstructions
	}

	if len(outgoingNeighbors) == 0 {
		return base
	}

	names := make([]string, 0, len(outgoingNeighbors))
	for _, nid := range outgoingNeighbors {
		names = append(names, labelFor(labels, nid))
	}

	examplePairs := make([]string, 0, 2)
	for _, name := range names[:min(2, len(names))] {
		examplePairs = append(examplePairs, fmt.Sprintf("%q: \"Brief comment\"", name))
	}

	second := names[0]
	if len(names) > 1 {
		second = names[1]
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nAfter your full response, output your position and comments in JSON format:\n\n")
	b.WriteString(SummaryMarker)
	b.WriteString("\n{\"position\": \"Your brief conclusion in 3-8 words\", \"comments\": {")
	b.WriteString(strings.Join(examplePairs, ", "))
	b.WriteString("}}\n\nExample:\n")
	b.WriteString(SummaryMarker)
	b.WriteString("\n{\"position\": \"AI needs regulation\", \"comments\": {")
	b.WriteString(fmt.Sprintf("%q: \"I agree with your risk analysis\", %q: \"However, your timeline is too pessimistic\"", names[0], second))
	b.WriteString("}}\n\nYour neighbors are: ")
	b.WriteString(strings.Join(names, `", "`))
	b.WriteString(". Provide exactly one comment per neighbor.")
	return b.String()
}

// BuildInitialPrompt builds the round-1 user turn.
func BuildInitialPrompt(question string) string {
	return fmt.Sprintf("Let's have a thoughtful debate about the following topic:\n\n%q\n\nShare your perspective concisely.", question)
}

// BuildFollowupPrompt builds the user turn for rounds after the first.
// neighborResponses holds pre-formatted "<label>: <text>" lines from the
// previous round; when empty, the prompt states that no other solutions
// exist yet.
func BuildFollowupPrompt(question string, neighborResponses []string) string {
	if len(neighborResponses) > 0 {
		lines := make([]string, 0, len(neighborResponses))
		for _, resp := range neighborResponses {
			lines = append(lines, "One agent solution: "+resp)
		}
		return fmt.Sprintf(
			"These are the solutions to the problem from other agents:\n%s\n\nUsing the solutions from other agents as additional information,\ncan you provide your answer to the problem?\nThe original problem is %s\n",
			strings.Join(lines, "\n"), question)
	}
	return fmt.Sprintf(
		"There are no solutions from other agents yet.\nCan you provide your answer to the problem?\nThe original problem is %s\n",
		question)
}

// BuildAggregatorPrompt renders the full transcript for the aggregation pass.
func BuildAggregatorPrompt(question string, responses *ResponseTable, labels map[string]string) string {
	var lines []string
	responses.Each(func(round int, nodeID, text string) {
		lines = append(lines, fmt.Sprintf("Round %d - %s: %s", round, labelFor(labels, nodeID), text))
	})
	transcript := "No responses."
	if len(lines) > 0 {
		transcript = strings.Join(lines, "\n")
	}
	return fmt.Sprintf("Debate topic:\n%s\n\nAgent responses by round:\n%s\n\nProvide a concise final summary.", question, transcript)
}

func labelFor(labels map[string]string, nodeID string) string {
	if label, ok := labels[nodeID]; ok && label != "" {
		return label
	}
	return nodeID
}
