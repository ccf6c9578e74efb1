package tools

// Kind enumerates the tools known to the agent.
type Kind int

const (
	// KindUnknown is what unrecognized names resolve to.
	KindUnknown Kind = iota
	KindFlights
	KindHotels
)

var kindNames = map[Kind]string{
	KindFlights: "flights_finder",
	KindHotels:  "hotels_finder",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ParseKind resolves a tool name as emitted by the model.
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnknown
}

// String returns the wire name of the tool.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}
