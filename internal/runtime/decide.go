package runtime

import "github.com/aretw0/voyage/pkg/domain"

// Decide is the decision point that follows a model step.
// The latest message must be a model response: if it requests at least one
// tool the loop continues with the tools, otherwise it heads to the email
// step.
func Decide(messages []domain.Message) (domain.Route, error) {
	if len(messages) == 0 {
		return "", domain.ErrNotAIResponse
	}
	last := messages[len(messages)-1]
	if last.Role != domain.RoleAI {
		return "", domain.ErrNotAIResponse
	}
	if len(last.ToolCalls) == 0 {
		return domain.RouteEmailSender, nil
	}
	return domain.RouteMoreTools, nil
}

// phaseFor maps a route to the phase the session enters.
func phaseFor(r domain.Route) domain.Phase {
	if r == domain.RouteMoreTools {
		return domain.PhaseToolStep
	}
	return domain.PhaseEmailPending
}
