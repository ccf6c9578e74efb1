package runtime

import "github.com/aretw0/voyage/pkg/domain"

// Node identifiers of the loop's graph.
const (
	NodeStart    = "__start__"
	NodeLLM      = "llm"
	NodeTools    = "tools"
	NodeEmail    = "email_sender"
	NodeEnd      = "__end__"
	signalResume = "approve"
)

// Topology describes the fixed graph the engine executes.
func Topology() ([]domain.Node, []domain.Edge) {
	nodes := []domain.Node{
		{ID: NodeStart, Kind: domain.NodeStart},
		{ID: NodeLLM, Kind: domain.NodeStep, Phase: domain.PhaseModelStep},
		{ID: NodeTools, Kind: domain.NodeTools, Phase: domain.PhaseToolStep},
		{ID: NodeEmail, Kind: domain.NodeGate, Phase: domain.PhaseEmailPending},
		{ID: NodeEnd, Kind: domain.NodeEnd, Phase: domain.PhaseEmailDone},
	}
	edges := []domain.Edge{
		{From: NodeStart, To: NodeLLM},
		{From: NodeLLM, To: NodeTools, Label: string(domain.RouteMoreTools)},
		{From: NodeLLM, To: NodeEmail, Label: string(domain.RouteEmailSender)},
		{From: NodeTools, To: NodeLLM},
		{From: NodeEmail, To: NodeEnd, Label: signalResume, Interrupt: true},
	}
	return nodes, edges
}

// NodeFor maps a phase to the node the session sits on.
func NodeFor(p domain.Phase) string {
	switch p {
	case domain.PhaseModelStep:
		return NodeLLM
	case domain.PhaseToolStep:
		return NodeTools
	case domain.PhaseEmailPending:
		return NodeEmail
	case domain.PhaseEmailDone:
		return NodeEnd
	default:
		return ""
	}
}

// Visited lists the nodes a session went through, derived from its
// conversation, in first-visit order.
func Visited(state *domain.State) []string {
	seen := map[string]bool{NodeStart: true}
	out := []string{NodeStart}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, m := range state.Messages {
		switch m.Role {
		case domain.RoleAI:
			add(NodeLLM)
		case domain.RoleTool:
			add(NodeTools)
		}
	}
	if state.Phase.Paused() || state.Phase.Terminal() {
		add(NodeEmail)
	}
	if state.Phase.Terminal() {
		add(NodeEnd)
	}
	return out
}
