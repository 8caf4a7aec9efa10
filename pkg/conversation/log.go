package conversation

import (
	"slices"
	"sync"

	"github.com/xhad/docchat/internal/models"
)

// Log is the append-only record of exchanged messages.
type Log struct {
	mu        sync.Mutex
	messages  []models.Message
	listeners []func(models.Message)
}

func NewLog() *Log {
	return &Log{}
}

// Append adds msg at the end and hands it to every listener, in order.
func (l *Log) Append(msg models.Message) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
}

// OnAppend registers fn to receive each new message after it is stored.
func (l *Log) OnAppend(fn func(models.Message)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Log) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.messages)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

func (l *Log) Last() (models.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 {
		return models.Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}
