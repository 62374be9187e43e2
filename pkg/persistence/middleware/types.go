package middleware

import "github.com/aretw0/callflow/pkg/ports"

// Middleware allows wrapping a CallStateStore to add behavior.
type Middleware func(ports.CallStateStore) ports.CallStateStore

// Chain wraps store with mws. The first middleware is the outermost.
func Chain(store ports.CallStateStore, mws ...Middleware) ports.CallStateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
