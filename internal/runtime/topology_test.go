package runtime

import (
	"testing"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestTopology_EdgesReferenceNodes(t *testing.T) {
	nodes, edges := Topology()
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	for _, e := range edges {
		assert.True(t, ids[e.From], "unknown source %s", e.From)
		assert.True(t, ids[e.To], "unknown target %s", e.To)
	}
}

func TestTopology_PhasesHaveNodes(t *testing.T) {
	for _, p := range []domain.Phase{domain.PhaseModelStep, domain.PhaseToolStep, domain.PhaseEmailPending, domain.PhaseEmailDone} {
		assert.NotEmpty(t, NodeFor(p), p)
	}
	assert.Empty(t, NodeFor("bogus"))
}

func TestVisited(t *testing.T) {
	s := domain.NewState("s")
	assert.Equal(t, []string{NodeStart}, Visited(s))

	s.Messages = append(s.Messages,
		domain.HumanMessage("q"),
		domain.AIMessage("", domain.ToolCall{ID: "1", Name: "hotels_finder"}),
		domain.ToolMessage("1", "hotels_finder", "radisson hotel"),
		domain.AIMessage("done"),
	)
	s.Phase = domain.PhaseEmailDone
	assert.Equal(t, []string{NodeStart, NodeLLM, NodeTools, NodeEmail, NodeEnd}, Visited(s))
}
