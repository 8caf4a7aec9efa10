package session

import (
	"slices"

	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
)

const (
	PlaceholderNoDocuments = "Upload a document first..."
	PlaceholderNoSelection = "Select a document to chat with..."
	PlaceholderReady       = "Ask a question about your document..."
)

// Toggle flips docID's membership in the selection and reports whether it
// is selected afterwards.
func (s *Session) Toggle(docID string) (selected bool, err error) {
	s.mutate(func() bool {
		if i := slices.Index(s.selection, docID); i >= 0 {
			s.selection = slices.Delete(s.selection, i, i+1)
			return true
		}
		if s.policy == PolicyStrict && !s.hasDocumentLocked(docID) {
			err = ErrUnknownDocument
			return false
		}
		s.selection = append(s.selection, docID)
		selected = true
		return true
	})

	if err != nil {
		s.log.Debug("toggle rejected", zap.String("doc_id", docID), zap.Error(err))
	}
	return selected, err
}

// Snapshot is an immutable copy of session state.
type Snapshot struct {
	Documents   []models.Document
	Selection   []string
	Busy        bool
	BusyMessage string
}

func (s Snapshot) IsSelected(docID string) bool {
	return slices.Contains(s.Selection, docID)
}

// DeriveUIFacts computes input enablement and placeholder text.
func DeriveUIFacts(s Snapshot) models.UIFacts {
	hasDocuments := len(s.Documents) > 0
	hasSelection := len(s.Selection) > 0

	facts := models.UIFacts{
		InputEnabled: hasDocuments && hasSelection && !s.Busy,
	}

	switch {
	case !hasDocuments:
		facts.Placeholder = PlaceholderNoDocuments
	case !hasSelection:
		facts.Placeholder = PlaceholderNoSelection
	default:
		facts.Placeholder = PlaceholderReady
	}
	return facts
}
