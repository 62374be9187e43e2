/*
Package callflow is a call-flow dispatcher for voice-assistant platforms.

It receives chat-completion style requests tagged with a call identifier, looks up the
call's position in a statically defined conversation graph (the pathway), derives the
system prompt from that node, forwards the conversation to a language-model provider
and advances the call to the node's first destination.

# Concept

The pathway is walked unconditionally: every turn moves the call to destinations[0] of
its current node, regardless of what was said. A node without a valid first destination
keeps the call in place. The model may request a transfer through the transferCall
function whenever a forwarding phone number is configured.

# Usage

	app, err := callflow.New(ctx, "./data")
	if err != nil {
		log.Fatal(err)
	}
	res, err := app.Dispatcher.Dispatch(ctx, domain.ChatRequest{
		Call:     &domain.CallRef{ID: "call-1"},
		Messages: []domain.Message{{Role: "user", Content: "Hello"}},
	})

The data directory holds pathways.json (or a YAML pathway), call_states.json and
assistant_config.json. Each is created with its default content on first run.
*/
package callflow
