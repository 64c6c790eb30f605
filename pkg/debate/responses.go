package debate

// ResponseTable accumulates each node's main text by round. Rounds and nodes
// are kept in insertion order so the aggregation transcript is deterministic.
// Only the immediately preceding round is read during scheduling, but all
// rounds are retained for the final aggregation pass.
type ResponseTable struct {
	rounds  []int
	byRound map[int]*roundResponses
}

type roundResponses struct {
	order []string
	texts map[string]string
}

// NewResponseTable creates an empty response table.
func NewResponseTable() *ResponseTable {
	return &ResponseTable{byRound: make(map[int]*roundResponses)}
}

// StartRound registers a round so the table reflects every round that ran,
// even if no node produced text in it.
func (t *ResponseTable) StartRound(round int) {
	if _, ok := t.byRound[round]; ok {
		return
	}
	t.rounds = append(t.rounds, round)
	t.byRound[round] = &roundResponses{texts: make(map[string]string)}
}

// Record stores a node's main text for the given round.
func (t *ResponseTable) Record(round int, nodeID, text string) {
	t.StartRound(round)
	r := t.byRound[round]
	if _, ok := r.texts[nodeID]; !ok {
		r.order = append(r.order, nodeID)
	}
	r.texts[nodeID] = text
}

// MainText returns the stored main text for (round, node), if any.
func (t *ResponseTable) MainText(round int, nodeID string) (string, bool) {
	r, ok := t.byRound[round]
	if !ok {
		return "", false
	}
	text, ok := r.texts[nodeID]
	return text, ok
}

// Empty reports whether no round has been started.
func (t *ResponseTable) Empty() bool {
	return len(t.rounds) == 0
}

// Each visits every (round, node, text) triple in round order, nodes in the
// order they were recorded.
func (t *ResponseTable) Each(fn func(round int, nodeID, text string)) {
	for _, round := range t.rounds {
		r := t.byRound[round]
		for _, nodeID := range r.order {
			fn(round, nodeID, r.texts[nodeID])
		}
	}
}
