package domain

// NodeKind classifies a node of the loop's graph for rendering.
type NodeKind string

const (
	NodeStart NodeKind = "start"
	NodeStep  NodeKind = "step"
	NodeTools NodeKind = "tools"
	NodeGate  NodeKind = "gate"
	NodeEnd   NodeKind = "end"
)

// Node is a vertex of the loop's graph.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Phase Phase    `json:"phase,omitempty"` // Phase the node runs in, if any
}

// Edge is a transition of the loop's graph. Label names the route or the
// signal that takes it.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
	// Interrupt marks edges that only fire on an external signal.
	Interrupt bool `json:"interrupt,omitempty"`
}
