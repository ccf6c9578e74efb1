// Package runtime implements the conversation loop: a fixed state machine
// over domain.Phase whose steps call the model, run tools and draft the
// final email.
package runtime
