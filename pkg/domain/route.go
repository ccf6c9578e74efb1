package domain

// Route is the outcome of the decision point that follows a model step.
type Route string

const (
	// RouteMoreTools sends the session to the tool step.
	RouteMoreTools Route = "more_tools"
	// RouteEmailSender sends the session to the (approval-gated) email step.
	RouteEmailSender Route = "email_sender"
)
