/*
Package domain contains the core domain models of the callflow dispatcher.

It defines the pathway graph entities, the assistant configuration and the
chat request shapes exchanged with callers and providers. This package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - PathwayNode: A named step of the conversation graph (instruction + destinations).
  - AssistantConfig: Runtime configuration (model, scaffold messages, forwarding number).
  - ChatRequest: An inbound chat-completion turn tagged with a call identifier.
  - Fragment: One unit of a provider token stream (text or function call).
*/
package domain
