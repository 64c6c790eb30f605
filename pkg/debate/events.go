package debate

// Event type names emitted by the scheduler.
const (
	EventTypePosition = "position"
	EventTypeMessage  = "message"
)

// Sender and recipient sentinels used in message events.
const (
	SenderAggregator = "aggregator"
	RecipientNone    = "none"
	RecipientAll     = "all"
)

// Event is one fully-formed record in the debate stream. Every emitted event
// is either a PositionEvent or a MessageEvent.
type Event interface {
	eventType() string
}

// PositionEvent reports a node's declared stance for one round.
type PositionEvent struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	Position string `json:"position"`
	Round    int    `json:"round"`
}

func (PositionEvent) eventType() string { return EventTypePosition }

// NewPositionEvent builds a position event for the given node and round.
func NewPositionEvent(from, position string, round int) PositionEvent {
	return PositionEvent{Type: EventTypePosition, From: from, Position: position, Round: round}
}

// MessageEvent carries a node's main text to one recipient, with the
// per-recipient comment as Summary. Text and Summary are always present in
// the wire form, even when empty.
type MessageEvent struct {
	Type    string `json:"type"`
	From    string `json:"from"`
	To      string `json:"to"`
	Text    string `json:"text"`
	Summary string `json:"summary"`
	Round   int    `json:"round"`
}

func (MessageEvent) eventType() string { return EventTypeMessage }

// NewMessageEvent builds a message event.
func NewMessageEvent(from, to, text, summary string, round int) MessageEvent {
	return MessageEvent{Type: EventTypeMessage, From: from, To: to, Text: text, Summary: summary, Round: round}
}
