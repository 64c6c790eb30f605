package debate

import "github.com/debatelab/debategraph/pkg/config"

// Topology holds the directed neighbor sets derived from the edge list.
// Neighbor lists preserve edge insertion order and contain no duplicates.
type Topology struct {
	Outgoing map[string][]string
	Incoming map[string][]string
}

// BuildTopology resolves the edge list into outgoing and incoming neighbor
// maps. Every known node id gets an entry, even when isolated. Edges with a
// missing endpoint or referencing an unknown node id are dropped silently.
func BuildTopology(nodes []config.NodeConfig, edges []config.EdgeConfig) *Topology {
	t := &Topology{
		Outgoing: make(map[string][]string, len(nodes)),
		Incoming: make(map[string][]string, len(nodes)),
	}
	for _, node := range nodes {
		t.Outgoing[node.ID] = []string{}
		t.Incoming[node.ID] = []string{}
	}

	addEdge := func(sender, receiver string) {
		if _, ok := t.Outgoing[sender]; !ok {
			return
		}
		if _, ok := t.Outgoing[receiver]; !ok {
			return
		}
		if !contains(t.Outgoing[sender], receiver) {
			t.Outgoing[sender] = append(t.Outgoing[sender], receiver)
		}
		if !contains(t.Incoming[receiver], sender) {
			t.Incoming[receiver] = append(t.Incoming[receiver], sender)
		}
	}

	for _, edge := range edges {
		if edge.From == "" || edge.To == "" {
			continue
		}
		switch edge.Direction {
		case config.DirectionAToB:
			addEdge(edge.From, edge.To)
		case config.DirectionBToA:
			addEdge(edge.To, edge.From)
		case config.DirectionBidirectional, "":
			addEdge(edge.From, edge.To)
			addEdge(edge.To, edge.From)
		}
	}

	return t
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
