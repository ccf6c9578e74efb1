package tools

import (
	"context"

	"github.com/mitchellh/mapstructure"
)

// FlightsArgs are the arguments of flights_finder.
type FlightsArgs struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// Builtin returns the travel tools. Both are placeholders returning fixed
// answers; flights_finder accepts its arguments but ignores them.
func Builtin() []Tool {
	return []Tool{
		{
			Kind:        KindFlights,
			Description: "Find flights between two cities.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start": map[string]any{"type": "string", "description": "Departure city"},
					"end":   map[string]any{"type": "string", "description": "Arrival city"},
				},
				"required": []string{"start", "end"},
			},
			Args:   func() any { return new(FlightsArgs) },
			Invoke: findFlights,
		},
		{
			Kind:        KindHotels,
			Description: "Find a hotel.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Invoke: findHotels,
		},
	}
}

func findFlights(ctx context.Context, _ any) (string, error) {
	return "chicago flight", nil
}

func findHotels(ctx context.Context, _ any) (string, error) {
	return "radisson hotel", nil
}

// DecodeArgs decodes model-supplied arguments into a typed struct, converting
// scalar types where reasonable.
func DecodeArgs(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
