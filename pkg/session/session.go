// Package session holds the client's in-memory view of the document store:
// the known documents, the selection used to scope questions, and the busy
// flag that gates network-triggering operations.
//
// All writes go through Session methods. The lock only covers in-memory
// mutation and is never held across network I/O.
package session

import (
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/logger"
)

var (
	ErrBusy            = errors.New("another operation is in progress")
	ErrUnknownDocument = errors.New("unknown document")
)

// Policy decides how the selection tracks the document list.
type Policy int

const (
	// PolicyStrict evicts selected ids that leave the document list and
	// refuses to select ids that are not in it.
	PolicyStrict Policy = iota
	// PolicyLegacy never evicts and never validates. Dangling ids are
	// reported by Violations.
	PolicyLegacy
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return PolicyStrict, nil
	case "legacy":
		return PolicyLegacy, nil
	}
	return PolicyStrict, errors.New("unknown selection policy: " + s)
}

func (p Policy) String() string {
	if p == PolicyLegacy {
		return "legacy"
	}
	return "strict"
}

type SessionConfig struct {
	Policy Policy
	Logger *zap.Logger
}

type Session struct {
	mu          sync.Mutex
	documents   []models.Document
	selection   []string
	busy        bool
	busyMessage string

	policy   Policy
	log      *zap.Logger
	observer func(Snapshot)
}

func NewWithConfig(config SessionConfig) *Session {
	return &Session{
		policy: config.Policy,
		log:    logger.OrNop(config.Logger).With(zap.String("module", "session")),
	}
}

func New() *Session {
	return NewWithConfig(SessionConfig{})
}

// Observe registers fn to run after every mutation with the new snapshot.
func (s *Session) Observe(fn func(Snapshot)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

func (s *Session) Policy() Policy {
	return s.policy
}

// mutate runs fn under the lock and notifies the observer afterwards.
func (s *Session) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	observer := s.observer
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed && observer != nil {
		observer(snap)
	}
}

// ReplaceDocuments installs docs as the authoritative list and returns the
// selected ids that were evicted because they are no longer present.
func (s *Session) ReplaceDocuments(docs []models.Document) []string {
	var evicted []string
	s.mutate(func() bool {
		s.documents = slices.Clone(docs)
		if s.policy == PolicyStrict {
			kept := s.selection[:0:0]
			for _, id := range s.selection {
				if s.hasDocumentLocked(id) {
					kept = append(kept, id)
				} else {
					evicted = append(evicted, id)
				}
			}
			s.selection = kept
		}
		return true
	})

	if len(evicted) > 0 {
		s.log.Info("evicted stale selection", zap.Strings("doc_ids", evicted))
	}
	return evicted
}

// AddUploaded appends a freshly uploaded document and makes it the only
// selected one.
func (s *Session) AddUploaded(doc models.Document) {
	s.mutate(func() bool {
		if !s.hasDocumentLocked(doc.ID) {
			s.documents = append(s.documents, doc)
		}
		s.selection = []string{doc.ID}
		return true
	})
}

// TryAcquire marks the session busy with message. The returned release is
// safe to call more than once.
func (s *Session) TryAcquire(message string) (release func(), err error) {
	s.mutate(func() bool {
		if s.busy {
			err = ErrBusy
			return false
		}
		s.busy = true
		s.busyMessage = message
		return true
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mutate(func() bool {
				s.busy = false
				s.busyMessage = ""
				return true
			})
		})
	}, nil
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Violations lists selected ids with no matching document. It is always
// empty under PolicyStrict.
func (s *Session) Violations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dangling []string
	for _, id := range s.selection {
		if !s.hasDocumentLocked(id) {
			dangling = append(dangling, id)
		}
	}
	return dangling
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Documents:   slices.Clone(s.documents),
		Selection:   slices.Clone(s.selection),
		Busy:        s.busy,
		BusyMessage: s.busyMessage,
	}
}

func (s *Session) hasDocumentLocked(id string) bool {
	return slices.ContainsFunc(s.documents, func(d models.Document) bool { return d.ID == id })
}
