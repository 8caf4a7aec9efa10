// Package status is the user-visible status line. Transient text clears
// itself after a delay unless something newer replaces it first.
package status

import (
	"sync"
	"time"
)

type StatusConfig struct {
	ClearDelay time.Duration
	OnChange   func(text string)
}

type Status struct {
	mu       sync.Mutex
	text     string
	gen      uint64
	timer    *time.Timer
	delay    time.Duration
	onChange func(string)
	closed   bool
}

func NewWithConfig(config StatusConfig) *Status {
	if config.ClearDelay == 0 {
		config.ClearDelay = 3 * time.Second
	}
	return &Status{delay: config.ClearDelay, onChange: config.OnChange}
}

func New() *Status {
	return NewWithConfig(StatusConfig{})
}

// Set shows text until it is replaced, cancelling any pending clear.
func (s *Status) Set(text string) {
	s.update(text, false)
}

// SetTransient shows text and clears it after the configured delay.
func (s *Status) SetTransient(text string) {
	s.update(text, true)
}

func (s *Status) Clear() {
	s.update("", false)
}

func (s *Status) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Close cancels any pending clear. Later updates are ignored.
func (s *Status) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = true
}

func (s *Status) update(text string, transient bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.gen++
	s.text = text
	if transient && text != "" {
		gen := s.gen
		s.timer = time.AfterFunc(s.delay, func() { s.expire(gen) })
	}
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(text)
	}
}

// expire clears the text only if nothing replaced it since gen was armed.
func (s *Status) expire(gen uint64) {
	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.text = ""
	s.timer = nil
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange("")
	}
}

func (s *Status) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
