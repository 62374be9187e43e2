/*
Package ports defines the driven ports (interfaces) of the callflow dispatcher.

These interfaces decouple the dispatch logic from external implementations, allowing
the dispatcher to work with various storage backends and language-model providers.

# Key Interfaces

  - CallStateStore: Key-value persistence of call id -> current node name.
  - ConfigRepository: Persistence of the assistant configuration document.
  - PathwaySource: Raw pathway document retrieval (file, memory).
  - DistributedLocker: Distributed locking for concurrent turns of one call across replicas.
  - Provider: The language-model capability (completion or token stream).
*/
package ports
