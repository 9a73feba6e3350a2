package session

import (
	"slices"
	"sync"

	"github.com/raphaelgruber/medconsult-go/internal/models"
)

// Log is the ordered, append-only message sequence of a session.
// Identifiers are not deduplicated: a resent record shows up twice.
type Log struct {
	mu       sync.RWMutex
	messages []models.Message
}

// Append adds a message to the end of the log.
func (l *Log) Append(msg models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// View returns a snapshot of the log in display order.
func (l *Log) View() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.messages)
}

// Len returns the number of logged messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
