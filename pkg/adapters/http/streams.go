package http

import (
	"log/slog"
	"sync"

	"github.com/aretw0/callflow/internal/logging"
)

// CallEvent is broadcast to subscribers of a call after every dispatched turn.
type CallEvent struct {
	CallID   string `json:"call_id"`
	TurnID   string `json:"turn_id"`
	Node     string `json:"node"`
	NextNode string `json:"next_node,omitempty"`
	Advanced bool   `json:"advanced"`
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // CallID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(callID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[callID]; !ok {
		sm.subscribers[callID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[callID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[callID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, callID)
			}
		}
	}
}

// Subscribers returns the number of subscribers of callID.
func (sm *StreamManager) Subscribers(callID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[callID])
}

func (sm *StreamManager) Broadcast(callID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[callID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "call_id", callID)
		}
	}
}
