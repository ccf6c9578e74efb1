/*
Package voyage is a tool-calling travel agent with a human approval gate in
front of its only side effect: drafting an email to the user.

# Concept

Each session (thread) runs a small fixed loop:

	__start__ --> llm --(more_tools)--> tools --> llm
	              llm --(email_sender)--> email_sender --(approve)--> __end__

The model step sends the conversation, prefixed with the travel agency
instruction, to a chat model bound to the registered tools. When the response
requests tools, the tool step runs every call in order and hands the results
back to the model. When it does not, the session pauses until an external
actor approves the email step, which asks the model to turn the latest answer
into an email.

Sessions are persisted at every step boundary through a ports.StateStore
(memory, file or Redis) and serialized per thread by pkg/session.

# Usage

	agent, err := voyage.New(scripted.New())
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, err := agent.Invoke(ctx, "123", "book me a flight")
	if err != nil {
		log.Fatal(err)
	}
	// state.Phase == domain.PhaseEmailPending

	state, err = agent.Resume(ctx, "123", domain.Approve())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(state.Output)

Converse combines both, waiting on an approval gate (see pkg/approval) with a
timeout in between.
*/
package voyage
