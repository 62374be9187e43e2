/*
Package dispatch implements the per-turn algorithm of the callflow dispatcher.

A turn resolves the call's current pathway node, builds the system prompt from the
node instruction, advances the call to the node's first destination and forwards the
conversation to the configured provider. Streaming turns return a FrameStream that
rewrites provider fragments into the outbound frame format and filters function calls
down to well-formed transferCall requests.
*/
package dispatch
