package domain

import "errors"

// ErrBadRequest is returned when a dispatch request cannot be served as sent
// (missing call id, unknown node, unknown provider).
var ErrBadRequest = errors.New("bad request")

// ErrMalformedGraph is returned when a pathway document is not a list of named nodes.
var ErrMalformedGraph = errors.New("malformed pathway graph")

// ErrInvalidConfig is returned when a configuration update is not a non-empty JSON object.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrStorageCorruption is returned when persisted data cannot be decoded.
// Callers must treat it as fatal at startup rather than resetting user data.
var ErrStorageCorruption = errors.New("storage corruption")

// ErrProvider wraps upstream language-model failures.
var ErrProvider = errors.New("provider error")

// ErrProviderTimeout is returned when a provider call exceeds its deadline.
var ErrProviderTimeout = errors.New("provider timeout")

// ErrCallNotFound is returned when a call identifier has no stored node.
var ErrCallNotFound = errors.New("call not found")

// ErrNodeNotFound is returned when a node name is not part of the pathway.
var ErrNodeNotFound = errors.New("node not found")

// ErrUnknownProvider is returned when the configured provider has no registered adapter.
var ErrUnknownProvider = errors.New("unknown provider")
