package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Message levels
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Message is a one-shot notice shown to the next client that asks.
type Message struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Messages holds notices from earlier operations until they are read once.
type Messages struct {
	mu    sync.Mutex
	items []Message
	limit int
}

// NewMessages returns an empty store keeping at most the 100 newest messages.
func NewMessages() *Messages {
	return &Messages{limit: 100}
}

// Add records a message.
func (m *Messages) Add(level, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Message{Level: level, Text: fmt.Sprintf(format, args...), At: time.Now()})
	if over := len(m.items) - m.limit; over > 0 {
		m.items = append([]Message(nil), m.items[over:]...)
	}
}

// Drain returns every stored message and forgets them.
func (m *Messages) Drain() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	if items == nil {
		items = []Message{}
	}
	return items
}

// GetMessages returns and clears the pending messages.
func (h *Handlers) GetMessages(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.Messages.Drain())
}
