// Package realtime holds the process-local subscription registry for chat
// and board event delivery. Topic membership is mutated only by the
// connect/disconnect transitions of this process; fan-out across processes
// goes through the optional Redis bridge.
package realtime

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
)

// Topic names a broadcast group: a board room or a user's personal group.
const (
	topicBoardPrefix = "board:"
	topicUserPrefix  = "user:"
)

// BoardTopic returns the room topic for a board.
func BoardTopic(boardID uint64) string {
	return topicBoardPrefix + strconv.FormatUint(boardID, 10)
}

// UserTopic returns the personal topic for a user.
func UserTopic(userID uint64) string {
	return topicUserPrefix + strconv.FormatUint(userID, 10)
}

// Hub is a topic → subscriber registry. Subscribers receive raw JSON
// payloads on buffered channels; a subscriber that cannot keep up has the
// payload dropped rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	bridge Bridge
}

// Bridge forwards published payloads to other processes. Nil means
// single-process deployment.
type Bridge interface {
	Forward(topic string, payload []byte)
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

// SetBridge attaches a cross-process forwarder. Must be called before the
// hub starts serving connections.
func (h *Hub) SetBridge(b Bridge) {
	h.bridge = b
}

// Subscribe registers a new subscriber on topic and returns its channel
// plus a cancel func that unsubscribes and closes the channel.
func (h *Hub) Subscribe(topic string) (ch chan []byte, cancel func()) {
	ch = make(chan []byte, 16)
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan []byte]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if subs, ok := h.subs[topic]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subs, topic)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
}

// Publish marshals event and delivers it to every local subscriber of
// topic, then hands it to the bridge if one is attached.
func (h *Hub) Publish(topic string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: marshal event for %s: %v", topic, err)
		return
	}
	h.deliver(topic, data)
	if h.bridge != nil {
		h.bridge.Forward(topic, data)
	}
}

// deliver fans a payload out to local subscribers only.
func (h *Hub) deliver(topic string, data []byte) {
	h.mu.RLock()
	for ch := range h.subs[topic] {
		select {
		case ch <- data:
		default: // drop if slow
		}
	}
	h.mu.RUnlock()
}

// Subscribers reports the current local subscriber count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
