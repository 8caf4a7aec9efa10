package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/docchat/internal/models"
)

func docs(ids ...string) []models.Document {
	out := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Document{ID: id, Filename: id + ".pdf"})
	}
	return out
}

func TestReplaceDocumentsKeepsServerOrder(t *testing.T) {
	s := New()
	s.ReplaceDocuments(docs("b", "a", "c"))

	snap := s.Snapshot()
	assert.Equal(t, docs("b", "a", "c"), snap.Documents)
	assert.Empty(t, snap.Selection)
}

func TestAddUploadedReplacesSelection(t *testing.T) {
	s := New()
	s.ReplaceDocuments(docs("a", "b"))
	_, err := s.Toggle("a")
	require.NoError(t, err)
	_, err = s.Toggle("b")
	require.NoError(t, err)

	s.AddUploaded(models.Document{ID: "d7", Filename: "notes.pdf"})

	snap := s.Snapshot()
	assert.Equal(t, models.Document{ID: "d7", Filename: "notes.pdf"}, snap.Documents[2])
	assert.Len(t, snap.Documents, 3)
	assert.Equal(t, []string{"d7"}, snap.Selection)
}

func TestAddUploadedDoesNotDuplicate(t *testing.T) {
	s := New()
	s.ReplaceDocuments(docs("a"))
	s.AddUploaded(models.Document{ID: "a", Filename: "a.pdf"})

	assert.Len(t, s.Snapshot().Documents, 1)
	assert.Equal(t, []string{"a"}, s.Snapshot().Selection)
}

func TestToggleIsIdempotentPair(t *testing.T) {
	for _, start := range [][]string{{}, {"a"}, {"a", "b"}, {"b", "c"}} {
		for _, x := range []string{"a", "b", "c"} {
			t.Run(fmt.Sprintf("%v/%s", start, x), func(t *testing.T) {
				s := New()
				s.ReplaceDocuments(docs("a", "b", "c"))
				for _, id := range start {
					_, err := s.Toggle(id)
					require.NoError(t, err)
				}
				before := s.Snapshot().Selection

				_, err := s.Toggle(x)
				require.NoError(t, err)
				_, err = s.Toggle(x)
				require.NoError(t, err)

				assert.ElementsMatch(t, before, s.Snapshot().Selection)
			})
		}
	}
}

func TestToggleReportsMembership(t *testing.T) {
	s := New()
	s.ReplaceDocuments(docs("a"))

	selected, err := s.Toggle("a")
	require.NoError(t, err)
	assert.True(t, selected)

	selected, err = s.Toggle("a")
	require.NoError(t, err)
	assert.False(t, selected)
}

func TestStrictPolicy(t *testing.T) {
	s := NewWithConfig(SessionConfig{Policy: PolicyStrict})
	s.ReplaceDocuments(docs("a", "b"))

	_, err := s.Toggle("zz")
	assert.ErrorIs(t, err, ErrUnknownDocument)
	assert.Empty(t, s.Snapshot().Selection)

	_, err = s.Toggle("a")
	require.NoError(t, err)
	_, err = s.Toggle("b")
	require.NoError(t, err)

	evicted := s.ReplaceDocuments(docs("b", "c"))
	assert.Equal(t, []string{"a"}, evicted)
	assert.Equal(t, []string{"b"}, s.Snapshot().Selection)
	assert.Empty(t, s.Violations())
}

// Legacy mode keeps stale ids selected; Violations exposes the divergence.
func TestLegacyPolicyKeepsDanglingIDs(t *testing.T) {
	s := NewWithConfig(SessionConfig{Policy: PolicyLegacy})
	s.ReplaceDocuments(docs("a", "b"))

	_, err := s.Toggle("a")
	require.NoError(t, err)
	_, err = s.Toggle("ghost")
	require.NoError(t, err)

	evicted := s.ReplaceDocuments(docs("b"))
	assert.Empty(t, evicted)
	assert.Equal(t, []string{"a", "ghost"}, s.Snapshot().Selection)
	assert.Equal(t, []string{"a", "ghost"}, s.Violations())
}

func TestTryAcquire(t *testing.T) {
	s := New()

	release, err := s.TryAcquire("Loading documents...")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.Busy)
	assert.Equal(t, "Loading documents...", snap.BusyMessage)

	_, err = s.TryAcquire("Thinking...")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, "Loading documents...", s.Snapshot().BusyMessage)

	release()
	release()
	assert.False(t, s.Busy())
	assert.Empty(t, s.Snapshot().BusyMessage)

	release2, err := s.TryAcquire("Thinking...")
	require.NoError(t, err)
	release2()
}

func TestObserverSeesEveryMutation(t *testing.T) {
	s := New()
	var seen []Snapshot
	s.Observe(func(snap Snapshot) { seen = append(seen, snap) })

	s.ReplaceDocuments(docs("a"))
	_, _ = s.Toggle("a")
	release, _ := s.TryAcquire("Thinking...")
	_, _ = s.TryAcquire("again")
	release()

	require.Len(t, seen, 4)
	assert.True(t, seen[2].Busy)
	assert.False(t, seen[3].Busy)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.ReplaceDocuments(docs("a"))
	_, _ = s.Toggle("a")

	snap := s.Snapshot()
	snap.Documents[0].Filename = "changed"
	snap.Selection[0] = "changed"

	assert.Equal(t, "a.pdf", s.Snapshot().Documents[0].Filename)
	assert.Equal(t, []string{"a"}, s.Snapshot().Selection)
}

func TestDeriveUIFacts(t *testing.T) {
	for _, documentsEmpty := range []bool{true, false} {
		for _, selectionEmpty := range []bool{true, false} {
			for _, busy := range []bool{true, false} {
				name := fmt.Sprintf("docsEmpty=%v/selEmpty=%v/busy=%v", documentsEmpty, selectionEmpty, busy)
				t.Run(name, func(t *testing.T) {
					snap := Snapshot{Busy: busy}
					if !documentsEmpty {
						snap.Documents = docs("a")
					}
					if !selectionEmpty {
						snap.Selection = []string{"a"}
					}

					facts := DeriveUIFacts(snap)

					assert.Equal(t, !documentsEmpty && !selectionEmpty && !busy, facts.InputEnabled)
					switch {
					case documentsEmpty:
						assert.Equal(t, PlaceholderNoDocuments, facts.Placeholder)
					case selectionEmpty:
						assert.Equal(t, PlaceholderNoSelection, facts.Placeholder)
					default:
						assert.Equal(t, PlaceholderReady, facts.Placeholder)
					}
				})
			}
		}
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("legacy")
	require.NoError(t, err)
	assert.Equal(t, PolicyLegacy, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParsePolicy("loose")
	assert.Error(t, err)
}
