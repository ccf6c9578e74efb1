package runtime

const (
	// ToolsSystemPrompt prefixes every model step.
	ToolsSystemPrompt = "You are a smart travel agency. Use the tools to look up information.\n" +
		"You are allowed to make multiple calls (either together or in sequence)."

	// EmailSystemPrompt instructs the model during the email step.
	EmailSystemPrompt = "write a email to the user"

	// NoDetailsContent stands in for an empty answer when drafting the email.
	NoDetailsContent = "No travel details were found."
)
